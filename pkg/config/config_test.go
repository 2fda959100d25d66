package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perpetual-s/gemi/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	newConfiger := func() *config.Configer {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
		return cfger
	}

	Context("with no config file", func() {
		It("loads fully-populated defaults", func() {
			cfg, err := newConfiger().LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Storage.Provider).To(Equal("sqlite"))
			Expect(cfg.Generation.Target).To(Equal("http://localhost:11434"))
			Expect(cfg.Generation.Model).To(Equal("gemma3:latest"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
			Expect(cfg.Memory.Enabled).To(BeTrue())
			Expect(cfg.Context.HistoryTurns).To(Equal(10))
			Expect(cfg.Context.PromptBudget).To(Equal(8000))
			Expect(cfg.Events.Provider).To(Equal("none"))
		})
	})

	Context("save and load", func() {
		It("round-trips the configuration", func() {
			cfger := newConfiger()

			cfg := config.NewDefaultConfig()
			cfg.Generation.Model = "llama3.2"
			cfg.Events.Provider = "kafka"
			cfg.Events.Brokers = []string{"localhost:9092"}
			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			loaded, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Generation.Model).To(Equal("llama3.2"))
			Expect(loaded.Events.Provider).To(Equal("kafka"))
			Expect(loaded.Events.Brokers).To(Equal([]string{"localhost:9092"}))
		})

		It("fills zero-value fields from defaults on load", func() {
			path := filepath.Join(dir, "config.toml")
			Expect(os.WriteFile(path, []byte("[generation]\nmodel = \"llama3.2\"\n"), 0o600)).To(Succeed())

			cfg, err := newConfiger().LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Generation.Model).To(Equal("llama3.2"))
			Expect(cfg.Generation.Target).To(Equal("http://localhost:11434"))
			Expect(cfg.Context.JournalTopK).To(Equal(3))
		})

		It("rejects a nil config", func() {
			Expect(newConfiger().SaveConfig(nil)).NotTo(Succeed())
		})
	})

	Context("dotted key access", func() {
		It("sets and gets string keys", func() {
			cfger := newConfiger()

			Expect(cfger.SetConfigValue("generation.model", "mistral")).To(Succeed())

			value, err := cfger.GetConfigValue("generation.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("mistral"))
		})

		It("sets and gets integer keys", func() {
			cfger := newConfiger()

			Expect(cfger.SetConfigValue("context.prompt_budget", "4000")).To(Succeed())

			value, err := cfger.GetConfigValue("context.prompt_budget")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("4000"))
		})

		It("parses comma-separated broker lists", func() {
			cfger := newConfiger()

			Expect(cfger.SetConfigValue("events.brokers", "a:9092, b:9092")).To(Succeed())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Events.Brokers).To(Equal([]string{"a:9092", "b:9092"}))
		})

		It("rejects unknown keys", func() {
			cfger := newConfiger()
			Expect(cfger.SetConfigValue("nope.nothing", "x")).NotTo(Succeed())

			_, err := cfger.GetConfigValue("nope.nothing")
			Expect(err).To(HaveOccurred())
		})

		It("rejects malformed integer values", func() {
			Expect(newConfiger().SetConfigValue("embedding.dimensions", "lots")).NotTo(Succeed())
		})
	})

	Describe("ParseConfigTOML", func() {
		It("rejects unsupported versions", func() {
			_, err := config.ParseConfigTOML([]byte("version = 99\n"))
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("covers every key the accessors accept", func() {
			for _, key := range config.ValidConfigKeys() {
				Expect(config.IsValidConfigKey(key)).To(BeTrue(), key)
			}
		})

		It("includes the context bounds", func() {
			Expect(config.ValidConfigKeys()).To(ContainElements(
				"context.history_turns",
				"context.prompt_budget",
				"vector_store.provider",
				"events.brokers",
			))
		})
	})
})

var _ = Describe("InitViper", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).NotTo(BeNil())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("storage.provider")).To(Equal(defaults.Storage.Provider))
		Expect(v.GetString("generation.model")).To(Equal(defaults.Generation.Model))
		Expect(v.GetString("api.listen")).To(Equal(defaults.API.Listen))
	})

	It("reads config file values over defaults", func() {
		data := `[generation]
model = "llama3.2"
`
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("generation.model")).To(Equal("llama3.2"))
		// Unset fields still get defaults
		defaults := config.NewDefaultConfig()
		Expect(v.GetString("generation.target")).To(Equal(defaults.Generation.Target))
	})

	It("respects environment variables with GEMI_ prefix", func() {
		os.Setenv("GEMI_GENERATION_MODEL", "mistral")
		defer os.Unsetenv("GEMI_GENERATION_MODEL")

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("generation.model")).To(Equal("mistral"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[generation]
model = "llama3.2"
`
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		os.Setenv("GEMI_GENERATION_MODEL", "mistral")
		defer os.Unsetenv("GEMI_GENERATION_MODEL")

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("generation.model")).To(Equal("mistral"))
	})
})
