package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter/src/shared/config"
	"github.com/veedubyou/stem-splitter/src/shared/config/envvar"
)

var _ = Describe("Settings", func() {
	var (
		dir          string
		settingsPath string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		settingsPath = ""

		for _, key := range []string{envvar.STEM_SPLITTER_CONFIG, envvar.PORT, envvar.OUTPUT_DIR, envvar.OPEN_BROWSER} {
			GinkgoT().Setenv(key, "")
		}
	})

	writeSettings := func(contents string) {
		settingsPath = filepath.Join(dir, "settings.yaml")
		Expect(os.WriteFile(settingsPath, []byte(contents), 0o644)).To(Succeed())
	}

	It("fails when an explicit settings file is missing", func() {
		_, err := config.LoadSettings(filepath.Join(dir, "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})

	It("uses the defaults when there is no settings file", func() {
		previous, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(os.Chdir, previous)

		settings, err := config.LoadSettings("")
		Expect(err).NotTo(HaveOccurred())
		Expect(settings).To(Equal(config.DefaultSettings()))
	})

	It("puts the shutdown listener on the next port", func() {
		settings := config.DefaultSettings()
		Expect(settings.ShutdownPort()).To(Equal(config.DefaultPort + 1))
		Expect(settings.ShutdownAddress()).To(Equal("127.0.0.1:8502"))
	})

	Describe("with a settings file", func() {
		BeforeEach(func() {
			writeSettings("port: 9000\noutput_dir: /tmp/stems\nlog_buffer_size: 10\n")
		})

		It("overrides the defaults", func() {
			settings, err := config.LoadSettings(settingsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.Port).To(Equal(9000))
			Expect(settings.OutputDir).To(Equal("/tmp/stems"))
			Expect(settings.LogBufferSize).To(Equal(10))
			Expect(settings.CacheDir).To(Equal(config.CacheDir))
		})

		It("lets the environment win over the file", func() {
			GinkgoT().Setenv(envvar.PORT, "9100")
			GinkgoT().Setenv(envvar.OPEN_BROWSER, "false")

			settings, err := config.LoadSettings(settingsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.Port).To(Equal(9100))
			Expect(settings.OpenBrowser).To(BeFalse())
		})

		It("rejects a malformed port override", func() {
			GinkgoT().Setenv(envvar.PORT, "eighty")

			_, err := config.LoadSettings(settingsPath)
			Expect(err).To(HaveOccurred())
		})
	})

	It("rejects invalid values", func() {
		writeSettings("log_buffer_size: 0\n")

		_, err := config.LoadSettings(settingsPath)
		Expect(err).To(MatchError(ContainSubstring("Log buffer size")))
	})

	It("rejects unparseable yaml", func() {
		writeSettings("port: [1, 2\n")

		_, err := config.LoadSettings(settingsPath)
		Expect(err).To(MatchError(ContainSubstring("Failed to parse settings file")))
	})
})

var _ = Describe("DemucsPath", func() {
	It("prefers the configured path", func() {
		Expect(config.DemucsPath("/opt/demucs/bin/demucs")).To(Equal("/opt/demucs/bin/demucs"))
	})
})
