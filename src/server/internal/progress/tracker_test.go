package progress_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter/src/server/internal/progress"
)

var _ = Describe("Tracker", func() {
	var (
		clock   *fakeClock
		bar     *recordingBar
		text    *recordingText
		options progress.Options
		tracker *progress.Tracker
	)

	BeforeEach(func() {
		clock = newFakeClock()
		bar = &recordingBar{}
		text = &recordingText{}
		options = progress.Options{Now: clock.Now}
	})

	JustBeforeEach(func() {
		tracker = progress.NewTracker(bar, text, options)
	})

	It("defaults the description, unit and total", func() {
		clock.Advance(2 * time.Second)
		tracker.Update(10)

		Expect(bar.fractions).To(Equal([]float64{0.1}))
		Expect(text.last()).To(HavePrefix("Processing: 10% | Elapsed: 2.0s | ETA: 18.0s | it/s: 5.0"))
	})

	It("accumulates updates", func() {
		tracker.Update(10)
		tracker.Update(15)
		Expect(tracker.Stats().N).To(Equal(25.0))
		Expect(bar.fractions).To(HaveLen(2))
	})

	It("sets an absolute count", func() {
		tracker.Update(10)
		tracker.Set(80)
		Expect(tracker.Stats().Fraction).To(BeNumerically("~", 0.8, 1e-9))
	})

	Describe("when disabled", func() {
		BeforeEach(func() {
			options.Disabled = true
		})

		It("counts without rendering", func() {
			tracker.Update(50)
			Expect(tracker.Stats().N).To(Equal(50.0))
			Expect(bar.fractions).To(BeEmpty())
			Expect(text.texts).To(BeEmpty())
		})
	})

	Describe("with a custom total and unit", func() {
		BeforeEach(func() {
			options.Total = 200
			options.Unit = "seconds"
			options.Desc = "Separating"
		})

		It("uses them in the status line", func() {
			clock.Advance(10 * time.Second)
			tracker.Set(100)
			Expect(text.last()).To(Equal("Separating: 50% | Elapsed: 10.0s | ETA: 10.0s | seconds/s: 10.0"))
		})
	})
})
