package cmd

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var _ = Describe("cmd", func() {
	Describe("commandWords()", func() {
		It("passes raw commands through", func() {
			words, err := commandWords([]string{"/ip/address/print", "?interface=ether1"})
			Expect(err).To(Succeed())
			Expect(words).To(Equal([]string{"/ip/address/print", "?interface=ether1"}))
		})

		It("resolves catalog names and appends the extra words", func() {
			words, err := commandWords([]string{"interfaces", "?type=ether"})
			Expect(err).To(Succeed())
			Expect(words).To(Equal([]string{"/interface/print", "?type=ether"}))
		})

		It("rejects unknown names and empty arguments", func() {
			_, err := commandWords([]string{"nope"})
			Expect(err).To(MatchError(ContainSubstring("unknown command")))

			_, err = commandWords(nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("recordsJSON()", func() {
		It("renders records as an array", func() {
			out, err := recordsJSON([]map[string]string{
				{"name": "ether1", ".id": "*1"},
				{"name": "ether2"},
			}, nil)
			Expect(err).To(Succeed())
			Expect(gjson.Get(out, "#").Int()).To(Equal(int64(2)))
			Expect(gjson.Get(out, `0.\.id`).String()).To(Equal("*1"))
			Expect(gjson.Get(out, "1.name").String()).To(Equal("ether2"))
		})

		It("renders an empty result as []", func() {
			out, err := recordsJSON(nil, nil)
			Expect(err).To(Succeed())
			Expect(out).To(Equal("[]"))
		})

		It("renders the !done attributes when there are no records", func() {
			out, err := recordsJSON(nil, map[string]string{"ret": "*5"})
			Expect(err).To(Succeed())
			Expect(gjson.Get(out, "done.ret").String()).To(Equal("*5"))
		})
	})

	Describe("emulate", func() {
		It("loads the default state", func() {
			store, err := loadStore("")
			Expect(err).To(Succeed())
			defer store.Close()

			state, err := store.Backup()
			Expect(err).To(Succeed())
			Expect(gjson.GetBytes(state, "interface.#").Int()).To(Equal(int64(3)))
		})

		It("loads a state file", func() {
			dir, err := ioutil.TempDir("", "rosapi-state")
			Expect(err).To(Succeed())
			defer os.RemoveAll(dir)

			path := filepath.Join(dir, "state.json")
			Expect(ioutil.WriteFile(path, []byte(`{"interface":[]}`), 0600)).To(Succeed())

			store, err := loadStore(path)
			Expect(err).To(Succeed())
			defer store.Close()

			state, err := store.Backup()
			Expect(err).To(Succeed())
			Expect(string(state)).To(Equal(`{"interface":[]}`))
		})

		It("logs requests through the router middleware", func() {
			router := setupRouter(false, zap.NewNop())
			router.GET("/ping", func(c *gin.Context) {
				c.String(http.StatusOK, "pong")
			})

			w := httptest.NewRecorder()
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).To(Succeed())

			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("pong"))
		})

		It("recovers from handler panics", func() {
			router := setupRouter(false, zap.NewNop())
			router.GET("/boom", func(c *gin.Context) {
				panic("boom")
			})

			w := httptest.NewRecorder()
			req, err := http.NewRequest(http.MethodGet, "/boom", nil)
			Expect(err).To(Succeed())

			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("version", func() {
		It("prints the build information", func() {
			var out bytes.Buffer
			VersionCmd.SetOut(&out)

			Expect(VersionCmd.RunE(VersionCmd, nil)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("rosctl"))
		})
	})
})
