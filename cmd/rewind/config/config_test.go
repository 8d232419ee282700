package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/rewind/cmd/rewind/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "rewind-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv("HOME", tmpDir)
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Context("with a local .rewind dir", func() {
		BeforeEach(func() {
			work := filepath.Join(tmpDir, "work")
			Expect(os.MkdirAll(filepath.Join(work, ".rewind"), 0o755)).To(Succeed())
			Expect(os.Chdir(work)).To(Succeed())
		})

		Describe("set subcommand", func() {
			It("sets a config value successfully", func() {
				Expect(run("set", "history.max_length", "25")).To(Succeed())
				Expect(out.String()).To(ContainSubstring("Set history.max_length = 25"))

				_, err := os.Stat(filepath.Join(tmpDir, "work", ".rewind", "config.toml"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("rejects unknown keys", func() {
				err := run("set", "invalid_key", "value")
				Expect(err).To(MatchError(ContainSubstring("Valid keys: history.delay_ms")))
			})

			It("requires exactly two arguments", func() {
				Expect(run("set", "history.seed")).NotTo(Succeed())
			})

			It("rejects zero arguments", func() {
				Expect(run("set")).NotTo(Succeed())
			})

			It("rejects invalid uint values", func() {
				Expect(run("set", "history.delay_ms", "not-a-number")).NotTo(Succeed())
			})
		})

		Describe("get subcommand", func() {
			It("gets a previously set value", func() {
				Expect(run("set", "log.json", "true")).To(Succeed())

				out.Reset()
				Expect(run("get", "log.json")).To(Succeed())
				Expect(out.String()).To(ContainSubstring("log.json  true"))
			})

			It("returns the default when unset", func() {
				Expect(run("get", "history.delay_ms")).To(Succeed())
				Expect(out.String()).To(ContainSubstring("history.delay_ms  50"))
			})

			It("rejects unknown keys", func() {
				Expect(run("get", "invalid_key")).NotTo(Succeed())
			})

			It("requires exactly one argument", func() {
				Expect(run("get")).NotTo(Succeed())
			})
		})

		Describe("list subcommand", func() {
			It("lists every key", func() {
				Expect(run("set", "history.seed", "11")).To(Succeed())

				out.Reset()
				Expect(run("list")).To(Succeed())
				Expect(out.String()).To(ContainSubstring("Config file:"))
				Expect(out.String()).To(MatchRegexp(`history\.seed\s+11`))
				Expect(out.String()).To(MatchRegexp(`history\.use_chunks\s+true`))
				Expect(out.String()).To(MatchRegexp(`log\.pretty\s+false`))
			})

			It("rejects any arguments", func() {
				Expect(run("list", "extra")).NotTo(Succeed())
			})
		})
	})

	Context("without a .rewind dir", func() {
		BeforeEach(func() {
			Expect(os.Chdir(tmpDir)).To(Succeed())
		})

		It("lists defaults", func() {
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No config file found. Using defaults."))
		})

		It("creates ~/.rewind on set", func() {
			Expect(run("set", "log.debug", "true")).To(Succeed())

			_, err := os.Stat(filepath.Join(tmpDir, ".rewind", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
