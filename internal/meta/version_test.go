package meta_test

import (
	"runtime"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rosapi/internal/meta"
)

var _ = Describe("meta", func() {
	It("reports the go version and platform", func() {
		info := meta.GetInfo()
		Expect(info.GoVersion).To(Equal(runtime.Version()))
		Expect(info.Platform).To(ContainSubstring(runtime.GOOS))
	})

	It("calls unversioned builds dev", func() {
		Expect(meta.Info{}.String()).To(HavePrefix("rosctl dev"))
		Expect(meta.Info{Version: "1.2.0"}.String()).To(HavePrefix("rosctl 1.2.0"))
	})
})
