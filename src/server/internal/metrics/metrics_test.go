package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter/src/server/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.New()
	})

	scrape := func() string {
		response := httptest.NewRecorder()
		m.Handler().ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(response.Code).To(Equal(http.StatusOK))

		body, err := io.ReadAll(response.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(body)
	}

	It("counts jobs by model and outcome", func() {
		m.JobStarted()
		m.JobFinished("htdemucs", metrics.OutcomeCompleted, 30*time.Second)
		m.JobStarted()
		m.JobFinished("htdemucs", metrics.OutcomeFailed, time.Second)

		body := scrape()
		Expect(body).To(ContainSubstring(`stem_splitter_jobs_total{model="htdemucs",outcome="completed"} 1`))
		Expect(body).To(ContainSubstring(`stem_splitter_jobs_total{model="htdemucs",outcome="failed"} 1`))
		Expect(body).To(ContainSubstring(`stem_splitter_job_duration_seconds_count{model="htdemucs"} 2`))
		Expect(body).To(ContainSubstring("stem_splitter_jobs_running 0"))
	})

	It("counts uploads", func() {
		m.UploadReceived(metrics.OutcomeAccepted)
		m.UploadReceived(metrics.OutcomeRejected)
		m.UploadReceived(metrics.OutcomeRejected)

		Expect(scrape()).To(ContainSubstring(`stem_splitter_uploads_total{outcome="rejected"} 2`))
	})

	It("keeps separate instances apart", func() {
		other := metrics.New()
		other.UploadReceived(metrics.OutcomeAccepted)

		Expect(scrape()).NotTo(ContainSubstring(`stem_splitter_uploads_total{outcome="accepted"}`))
	})
})
