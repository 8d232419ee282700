package rewindcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	rewindcmder "github.com/papercomputeco/rewind/cmd/rewind"
)

var _ = Describe("NewRewindCmd", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", tmpDir)
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		cmd := rewindcmder.NewRewindCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("registers the global flags", func() {
		cmd := rewindcmder.NewRewindCmd()

		debug := cmd.PersistentFlags().Lookup("debug")
		Expect(debug).NotTo(BeNil())
		Expect(debug.Shorthand).To(Equal("d"))
		Expect(debug.DefValue).To(Equal("false"))

		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("registers every subcommand", func() {
		cmd := rewindcmder.NewRewindCmd()

		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("watch", "bench", "config", "version"))
	})

	It("runs version", func() {
		Expect(execute("version")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version:"))
	})

	It("passes --config-dir down to config commands", func() {
		Expect(execute("config", "set", "history.max_length", "7", "--config-dir", tmpDir)).To(Succeed())

		out.Reset()
		Expect(execute("config", "get", "history.max_length", "--config-dir", tmpDir)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("7"))
	})

	It("passes --config-dir down to bench", func() {
		Expect(execute("bench", "--size", "100", "--depth", "1", "--config-dir", tmpDir, "-d")).To(Succeed())
		Expect(out.String()).To(MatchRegexp(`entries\s+2`))
	})

	It("rejects unknown commands", func() {
		Expect(execute("rewrite")).To(HaveOccurred())
	})
})
