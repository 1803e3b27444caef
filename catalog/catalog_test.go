package catalog_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rosapi/catalog"
)

var _ = Describe("catalog", func() {
	It("builds print commands with queries", func() {
		Expect(catalog.EthernetPrint()).To(Equal([]string{"/interface/print", "?type=ether"}))
	})

	It("builds add commands with sorted attributes", func() {
		Expect(catalog.IPAddressAdd("10.0.0.1/24", "ether1")).To(Equal([]string{
			"/ip/address/add", "=address=10.0.0.1/24", "=interface=ether1",
		}))
	})

	It("builds set and remove commands by id", func() {
		Expect(catalog.Set(catalog.PathIPAddress, "*1", map[string]string{"disabled": "yes"})).To(Equal([]string{
			"/ip/address/set", "=.id=*1", "=disabled=yes",
		}))
		Expect(catalog.Remove(catalog.PathIPAddress, "*1")).To(Equal([]string{"/ip/address/remove", "=.id=*1"}))
	})

	It("builds a proplist attribute", func() {
		Expect(catalog.Proplist("name", "type")).To(Equal("=.proplist=name,type"))
	})

	Describe("Lookup()", func() {
		It("finds commands by name", func() {
			words, ok := catalog.Lookup("resources")
			Expect(ok).To(BeTrue())
			Expect(words).To(Equal([]string{"/system/resource/print"}))
		})

		It("reports unknown names", func() {
			_, ok := catalog.Lookup("nope")
			Expect(ok).To(BeFalse())
		})

		It("lists every name", func() {
			Expect(catalog.Names()).To(ContainElements("interfaces", "addresses", "identity"))
			Expect(catalog.Names()).To(HaveLen(9))
		})
	})
})
