package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate(`{"a":1}`, 10)).To(Equal(`{"a":1}`))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		Expect(Truncate(`{"name":"root","children":[]}`, 10)).To(Equal(`{"name":"r...`))
	})

	It("counts runes, not bytes", func() {
		Expect(Truncate("héllo", 5)).To(Equal("héllo"))
		Expect(Truncate("日本語テキスト", 3)).To(Equal("日本語..."))
	})
})

var _ = Describe("BuildInfo", func() {
	It("lists every build variable", func() {
		Expect(BuildInfo()).To(Equal("Version: dev\nSha: HEAD\nBuilt at: dev\n"))
	})
})
