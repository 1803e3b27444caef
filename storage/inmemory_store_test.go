package storage_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rosapi/storage"
)

var _ = Describe("storage / InmemoryStore", func() {
	var (
		ctx   context.Context
		store *storage.InmemoryStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = storage.NewInmemoryStore()
		Expect(store.Restore([]byte(storage.DefaultState))).To(Succeed())
	})

	AfterEach(func() {
		store.Close()
	})

	Describe("Close()", func() {
		It("does not panic when closed twice", func() {
			Expect(func() { store.Close() }).NotTo(Panic())
			Expect(func() { store.Close() }).NotTo(Panic())
		})

		It("refuses reads once closed", func() {
			store.Close()
			_, err := store.List(ctx, "/interface")
			Expect(err).To(MatchError(storage.ErrClosed))
		})
	})

	It("an empty inmemory store equals {}", func() {
		empty := storage.NewInmemoryStore()
		defer empty.Close()

		value, err := empty.Backup()
		Expect(err).To(Succeed())
		Expect(string(value)).To(Equal(`{}`))
	})

	It("rejects an invalid document", func() {
		Expect(store.Restore([]byte(`{"interface": [`))).NotTo(Succeed())
	})

	Describe("List()", func() {
		It("returns the rows of a menu", func() {
			rows, err := store.List(ctx, "/interface")
			Expect(err).To(Succeed())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0]).To(HaveKeyWithValue(".id", "*1"))
			Expect(rows[0]).To(HaveKeyWithValue("name", "ether1"))
		})

		It("resolves nested menus", func() {
			rows, err := store.List(ctx, "/ip/address")
			Expect(err).To(Succeed())
			Expect(rows).To(ConsistOf(HaveKeyWithValue("address", "192.168.88.1/24")))

			rows, err = store.List(ctx, "/ip/dhcp-server/lease")
			Expect(err).To(Succeed())
			Expect(rows).To(BeEmpty())
		})

		It("fails for unknown menus", func() {
			_, err := store.List(ctx, "/ip/nope")
			Expect(err).To(MatchError(storage.ErrNoSuchMenu))

			_, err = store.List(ctx, "/ip")
			Expect(err).To(MatchError(storage.ErrNoSuchMenu))
		})
	})

	Describe("Add()", func() {
		It("assigns the next id and keeps the row", func() {
			id, err := store.Add(ctx, "/ip/address", map[string]string{"address": "10.0.0.1/24", "interface": "ether1"})
			Expect(err).To(Succeed())
			Expect(id).To(Equal("*2"))

			rows, err := store.List(ctx, "/ip/address")
			Expect(err).To(Succeed())
			Expect(rows).To(HaveLen(2))
			Expect(rows[1]).To(Equal(map[string]string{
				".id": "*2", "address": "10.0.0.1/24", "interface": "ether1",
			}))
		})

		It("starts at *1 in an empty menu", func() {
			id, err := store.Add(ctx, "/log", map[string]string{"message": "hello"})
			Expect(err).To(Succeed())
			Expect(id).To(Equal("*1"))
		})
	})

	Describe("Update()", func() {
		It("changes the row with the given id", func() {
			Expect(store.Update(ctx, "/interface", "*2", map[string]string{"disabled": "true", ".id": "*9"})).To(Succeed())

			rows, err := store.List(ctx, "/interface")
			Expect(err).To(Succeed())
			Expect(rows[1]).To(HaveKeyWithValue("disabled", "true"))
			Expect(rows[1]).To(HaveKeyWithValue(".id", "*2"))
		})

		It("updates single row menus without an id", func() {
			Expect(store.Update(ctx, "/system/identity", "", map[string]string{"name": "core-1"})).To(Succeed())

			rows, err := store.List(ctx, "/system/identity")
			Expect(err).To(Succeed())
			Expect(rows).To(Equal([]map[string]string{{"name": "core-1"}}))
		})

		It("fails for unknown ids", func() {
			err := store.Update(ctx, "/interface", "*99", map[string]string{"disabled": "true"})
			Expect(err).To(MatchError(storage.ErrNoSuchItem))
		})
	})

	Describe("Remove()", func() {
		It("deletes the row", func() {
			Expect(store.Remove(ctx, "/interface", "*2")).To(Succeed())

			rows, err := store.List(ctx, "/interface")
			Expect(err).To(Succeed())
			Expect(rows).To(HaveLen(2))
			Expect(rows[1]).To(HaveKeyWithValue("name", "bridge"))
		})

		It("fails for unknown ids", func() {
			Expect(store.Remove(ctx, "/interface", "*99")).To(MatchError(storage.ErrNoSuchItem))
			Expect(store.Remove(ctx, "/interface", "")).To(MatchError(storage.ErrNoSuchItem))
		})
	})
})
