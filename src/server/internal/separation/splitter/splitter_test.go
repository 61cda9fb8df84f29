package splitter_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter/src/server/internal/progress"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/splitter"
	"github.com/veedubyou/stem-splitter/src/shared/lib/cerr"
	"github.com/veedubyou/stem-splitter/src/shared/testing/dummy"
)

var _ = Describe("Splitter", func() {
	var (
		outputDir     string
		dummyExecutor *dummy.DemucsExecutor
		environment   staticEnvironment
		logDisplay    *recordingDisplay
		progressText  *recordingDisplay
		monitor       splitter.Monitor

		job    entity.JobConfig
		upload entity.Upload
		ctx    context.Context

		s splitter.Splitter
	)

	BeforeEach(func() {
		outputDir = GinkgoT().TempDir()
		dummyExecutor = dummy.NewDummyDemucsExecutor()
		environment = staticEnvironment{env: []string{"TORCH_HOME=/cache"}}
		logDisplay = &recordingDisplay{}
		progressText = &recordingDisplay{}
		monitor = splitter.Monitor{
			Log:      logDisplay,
			Progress: progress.NewAdapter(nil, progressText, "Separating", nil),
		}

		job = entity.DefaultJobConfig(false)
		upload = entity.Upload{Name: "song.mp3", Data: []byte("cool_jamz")}
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		s = splitter.NewSplitter(outputDir, "/somewhere/demucs", 50, dummyExecutor, environment)
	})

	split := func() (entity.Result, error) {
		return s.Split(ctx, job, upload, monitor)
	}

	It("saves the upload, runs demucs and reports the stem paths", func() {
		result, err := split()
		Expect(err).NotTo(HaveOccurred())

		workDir := filepath.Join(outputDir, "song.mp3")
		Expect(result.OutputDir).To(Equal(workDir))
		Expect(result.Stems).To(Equal([]string{"vocals", "drums", "bass", "other"}))
		Expect(result.Channels()).To(Equal(4))

		By("writing the upload into the work dir")
		Expect(os.ReadFile(filepath.Join(workDir, "song.mp3"))).To(Equal([]byte("cool_jamz")))

		By("producing every stem at the reported path")
		for i, path := range result.Paths {
			Expect(path).To(Equal(filepath.Join(workDir, "htdemucs", result.Stems[i]+".mp3")))
			Expect(os.ReadFile(path)).To(Equal([]byte(dummy.StemContents([]byte("cool_jamz"), result.Stems[i]))))
		}

		By("invoking demucs in the work dir with the job's arguments")
		invocations := dummyExecutor.DemucsInvocations()
		Expect(invocations).To(HaveLen(1))
		Expect(invocations[0].Name).To(Equal("/somewhere/demucs"))
		Expect(invocations[0].Dir).To(Equal(workDir))
		Expect(invocations[0].Env).To(Equal([]string{"TORCH_HOME=/cache"}))
		Expect(invocations[0].Args).To(Equal(splitter.BuildArgs(job, workDir, filepath.Join(workDir, "song.mp3"))))
	})

	It("streams the log into the display and progress bars into the tracker", func() {
		_, err := split()
		Expect(err).NotTo(HaveOccurred())

		Expect(logDisplay.last()).To(ContainSubstring("Separating track"))
		Expect(logDisplay.last()).NotTo(ContainSubstring("%|"))
		Expect(progressText.last()).To(HavePrefix("Separating: 100% |"))
	})

	It("keeps an existing upload on disk instead of rewriting it", func() {
		workDir := filepath.Join(outputDir, "song.mp3")
		Expect(os.MkdirAll(workDir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(workDir, "song.mp3"), []byte("first"), 0o644)).To(Succeed())

		result, err := split()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.ReadFile(filepath.Join(workDir, "song.mp3"))).To(Equal([]byte("first")))
		Expect(os.ReadFile(result.Paths[0])).To(Equal([]byte("first-vocals")))
	})

	It("derives the stem extension from the output format", func() {
		job.Format = entity.FLAC
		job.StemMode = entity.TwoStems

		result, err := split()
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Paths).To(ConsistOf(
			filepath.Join(outputDir, "song.mp3", "htdemucs", "vocals.flac"),
			filepath.Join(outputDir, "song.mp3", "htdemucs", "no_vocals.flac"),
		))
		for _, path := range result.Paths {
			Expect(path).To(BeAnExistingFile())
		}
	})

	It("confines the work dir to the output dir", func() {
		upload.Name = "../../escape.mp3"

		result, err := split()
		Expect(err).NotTo(HaveOccurred())
		Expect(result.OutputDir).To(Equal(filepath.Join(outputDir, "escape.mp3")))
	})

	Describe("when demucs fails", func() {
		BeforeEach(func() {
			dummyExecutor.Fail = true
		})

		It("returns the error with the captured output", func() {
			_, err := split()
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, splitter.DemucsFailedMark)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("CUDA out of memory"))
			Expect(cerr.FieldsOf(err)).To(HaveKey("demucs_output"))
		})

		It("still shows the log", func() {
			_, _ = split()
			Expect(logDisplay.last()).To(ContainSubstring("CUDA out of memory"))
		})
	})

	It("does not start once the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		ctx = cancelled

		_, err := split()
		Expect(errors.Is(err, splitter.CancelledMark)).To(BeTrue())
		Expect(dummyExecutor.Invocations()).To(BeEmpty())
	})

	It("fails when the environment cannot be prepared", func() {
		environment.err = errors.New("no cache dir")

		_, err := split()
		Expect(err).To(MatchError(ContainSubstring("no cache dir")))
		Expect(dummyExecutor.Invocations()).To(BeEmpty())
	})
})
