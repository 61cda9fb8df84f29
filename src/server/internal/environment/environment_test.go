package environment_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter/src/server/internal/environment"
)

var _ = Describe("Setup", func() {
	var (
		root  string
		setup environment.Setup
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		GinkgoT().Setenv(environment.TorchHomeKey, "/somewhere/else")

		setup = environment.Setup{
			CacheDir:  filepath.Join(root, ".cache"),
			OutputDir: filepath.Join(root, "output"),
		}
	})

	It("creates both directories and points TORCH_HOME at the cache", func() {
		Expect(setup.Ensure()).To(Succeed())

		Expect(setup.CacheDir).To(BeADirectory())
		Expect(setup.OutputDir).To(BeADirectory())
		Expect(os.Getenv(environment.TorchHomeKey)).To(Equal(setup.CacheDir))
	})

	It("is idempotent", func() {
		Expect(setup.Ensure()).To(Succeed())

		marker := filepath.Join(setup.OutputDir, "keep.txt")
		Expect(os.WriteFile(marker, []byte("x"), 0o644)).To(Succeed())

		Expect(setup.Ensure()).To(Succeed())
		Expect(setup.Ensure()).To(Succeed())
		Expect(marker).To(BeAnExistingFile())
	})

	It("fails when a directory path is taken by a file", func() {
		Expect(os.WriteFile(filepath.Join(root, "output"), []byte("x"), 0o644)).To(Succeed())
		Expect(setup.Ensure()).NotTo(Succeed())
	})

	It("hands the child process exactly one TORCH_HOME", func() {
		env, err := setup.CommandEnv()
		Expect(err).NotTo(HaveOccurred())

		torchHomes := []string{}
		for _, entry := range env {
			if len(entry) > len(environment.TorchHomeKey) && entry[:len(environment.TorchHomeKey)+1] == environment.TorchHomeKey+"=" {
				torchHomes = append(torchHomes, entry)
			}
		}
		Expect(torchHomes).To(Equal([]string{environment.TorchHomeKey + "=" + setup.CacheDir}))
	})
})
