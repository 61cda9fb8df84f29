package uigateway_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter/src/server/internal/device"
	"github.com/veedubyou/stem-splitter/src/server/internal/environment"
	"github.com/veedubyou/stem-splitter/src/server/internal/events"
	"github.com/veedubyou/stem-splitter/src/server/internal/metrics"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/errors"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/splitter"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/usecase"
	"github.com/veedubyou/stem-splitter/src/server/internal/session"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/assets"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/gateway"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/view"
	testinglib "github.com/veedubyou/stem-splitter/src/shared/testing"
	"github.com/veedubyou/stem-splitter/src/shared/testing/dummy"
)

type statusResponse struct {
	Running      bool    `json:"running"`
	Submitted    bool    `json:"submitted"`
	UploadName   string  `json:"upload_name"`
	Log          string  `json:"log"`
	Progress     float64 `json:"progress"`
	ProgressText string  `json:"progress_text"`
	Error        string  `json:"error"`
}

type resultResponse struct {
	Stems []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"stems"`
}

var _ = Describe("Gateway", func() {
	var (
		e             *echo.Echo
		setup         environment.Setup
		dummyExecutor *dummy.DemucsExecutor
		listener      *countingListener
		staticAssets  fstest.MapFS
		gpu           bool
		cookie        *http.Cookie
	)

	BeforeEach(func() {
		testinglib.SetTestEnv()

		root := GinkgoT().TempDir()
		setup = environment.Setup{
			CacheDir:  filepath.Join(root, ".cache"),
			OutputDir: filepath.Join(root, "output"),
		}
		GinkgoT().Setenv(environment.TorchHomeKey, "")

		dummyExecutor = dummy.NewDummyDemucsExecutor()
		listener = &countingListener{}
		staticAssets = fstest.MapFS{
			assets.ScriptFile: &fstest.MapFile{Data: []byte("console.log('ui');")},
			assets.StyleFile:  &fstest.MapFile{Data: []byte("body {}")},
		}
		gpu = false
		cookie = nil
	})

	JustBeforeEach(func() {
		dev := staticDevice{info: device.Info{GPUAvailable: gpu, GPUName: "RTX", GPUMemoryGB: 8}}
		s := splitter.NewSplitter(setup.OutputDir, "demucs", 50, dummyExecutor, setup)
		usecase := separationusecase.NewUsecase(setup, s, dev, events.NoopPublisher{}, metrics.New(), 1024)
		store := session.NewStore(func() entity.JobConfig {
			return entity.DefaultJobConfig(gpu)
		})

		g := uigateway.NewGateway(store, usecase, dev, listener, assets.NewLoader(staticAssets), uigateway.Config{
			OutputDir:     setup.OutputDir,
			MaxFileSizeMB: 1,
			ShutdownPort:  8502,
		})

		e = echo.New()
		e.Renderer = testinglib.ExpectSuccess(view.NewRenderer())
		e.GET("/", g.Page)
		e.POST("/config", g.UpdateConfig)
		e.POST("/upload", g.Upload)
		e.POST("/submit", g.Submit)
		e.GET("/session/status", g.Status)
		e.Static(uigateway.OutputRoute, setup.OutputDir)
	})

	serve := func(factory testinglib.RequestFactory) *httptest.ResponseRecorder {
		if cookie != nil {
			factory.Mods.Add(testinglib.WithCookies(cookie))
		}

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, factory.MakeFake())

		for _, c := range rec.Result().Cookies() {
			if c.Name == session.CookieName {
				cookie = c
			}
		}

		return rec
	}

	getPage := func() string {
		rec := serve(testinglib.RequestFactory{Method: http.MethodGet, Target: "/"})
		Expect(rec.Code).To(Equal(http.StatusOK))
		return rec.Body.String()
	}

	upload := func(name string, data []byte) *httptest.ResponseRecorder {
		return serve(testinglib.RequestFactory{
			Method: http.MethodPost,
			Target: "/upload",
			File:   &testinglib.FileField{Field: uigateway.UploadField, FileName: name, Data: data},
		})
	}

	updateConfig := func(form url.Values) *httptest.ResponseRecorder {
		return serve(testinglib.RequestFactory{Method: http.MethodPost, Target: "/config", Form: form})
	}

	submit := func() *httptest.ResponseRecorder {
		return serve(testinglib.RequestFactory{Method: http.MethodPost, Target: "/submit"})
	}

	status := func() statusResponse {
		rec := serve(testinglib.RequestFactory{Method: http.MethodGet, Target: "/session/status"})
		Expect(rec.Code).To(Equal(http.StatusOK))
		return testinglib.DecodeJSON[statusResponse](rec.Body)
	}

	Describe("the page", func() {
		It("sets a session cookie and renders the empty state", func() {
			html := getPage()

			Expect(cookie).NotTo(BeNil())
			Expect(html).To(ContainSubstring("Sol Audio Stem Splitter"))
			Expect(html).To(ContainSubstring("console.log('ui');"))
			Expect(html).To(MatchRegexp(`id="submit-button"\s+disabled`))
			Expect(html).To(ContainSubstring("CPU: Basic processing"))
		})

		It("starts the shutdown listener once per session", func() {
			getPage()
			getPage()
			Expect(listener.Calls()).To(Equal(1))

			cookie = nil
			getPage()
			Expect(listener.Calls()).To(Equal(2))
		})

		It("shows a missing asset as an error and keeps rendering", func() {
			delete(staticAssets, assets.StyleFile)

			html := getPage()
			Expect(html).To(ContainSubstring("CSS file not found"))
			Expect(html).To(ContainSubstring("console.log('ui');"))
		})

		Context("when a GPU is detected", func() {
			BeforeEach(func() {
				gpu = true
			})

			It("shows the GPU and selects it by default", func() {
				html := getPage()
				Expect(html).To(ContainSubstring("GPU: RTX (8.0GB)"))
				Expect(html).To(ContainSubstring(`name="gpu" value="true" checked`))
			})
		})
	})

	Describe("uploading", func() {
		JustBeforeEach(func() {
			getPage()
		})

		It("stores the upload in the session", func() {
			rec := upload("song.mp3", []byte("cool_jamz"))
			Expect(rec.Code).To(Equal(http.StatusOK))

			Expect(status().UploadName).To(Equal("song.mp3"))
			Expect(getPage()).To(MatchRegexp(`id="submit-button"\s*>`))
		})

		It("rejects unsupported file types", func() {
			rec := upload("song.ogg", []byte("cool_jamz"))
			Expect(rec.Code).To(Equal(http.StatusUnsupportedMediaType))
			Expect(testinglib.DecodeJSONError(rec.Body).Code).To(Equal(string(separationerrors.UnsupportedFileTypeCode)))
		})

		It("rejects files over the size limit", func() {
			rec := upload("song.wav", make([]byte, 2048))
			Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(testinglib.DecodeJSONError(rec.Body).Code).To(Equal(string(separationerrors.FileTooLargeCode)))
		})

		It("rejects a request without a file", func() {
			rec := serve(testinglib.RequestFactory{
				Method: http.MethodPost,
				Target: "/upload",
				Form:   url.Values{"nothing": {"here"}},
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(testinglib.DecodeJSONError(rec.Body).Code).To(Equal(string(separationerrors.NoUploadCode)))
		})
	})

	Describe("configuring", func() {
		JustBeforeEach(func() {
			getPage()
		})

		It("updates the session's job config", func() {
			rec := updateConfig(url.Values{
				"model":         {"htdemucs_6s"},
				"stem_mode":     {"all_stems"},
				"format":        {"wav"},
				"mp3_bitrate":   {"320"},
				"wav_bit_depth": {"float32"},
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			html := getPage()
			Expect(html).To(ContainSubstring(`<option value="htdemucs_6s" title="6-source version that also separates guitar and piano" selected>`))
			Expect(html).To(ContainSubstring(`<option value="float32" selected>`))
		})

		It("rejects GPU processing without a GPU", func() {
			rec := updateConfig(url.Values{"gpu": {"true"}})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(testinglib.DecodeJSONError(rec.Body).Code).To(Equal(string(separationerrors.BadJobConfigCode)))
		})

		It("rejects a malformed bitrate", func() {
			rec := updateConfig(url.Values{"mp3_bitrate": {"loud"}})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("submitting", func() {
		It("requires a session", func() {
			rec := submit()
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(testinglib.DecodeJSONError(rec.Body).Code).To(Equal(string(separationerrors.SessionNotFoundCode)))
		})

		It("requires an upload", func() {
			getPage()
			rec := submit()
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(testinglib.DecodeJSONError(rec.Body).Code).To(Equal(string(separationerrors.NoUploadCode)))
		})

		Context("with an upload", func() {
			JustBeforeEach(func() {
				getPage()
				Expect(upload("my song.mp3", []byte("cool_jamz")).Code).To(Equal(http.StatusOK))
			})

			It("separates the upload and serves the stems", func() {
				rec := submit()
				Expect(rec.Code).To(Equal(http.StatusOK))

				result := testinglib.DecodeJSON[resultResponse](rec.Body)
				Expect(result.Stems).To(HaveLen(4))
				Expect(result.Stems[0].Name).To(Equal("vocals"))
				Expect(result.Stems[0].URL).To(Equal("/output/my%20song.mp3/htdemucs/vocals.mp3"))

				stemRec := serve(testinglib.RequestFactory{Method: http.MethodGet, Target: result.Stems[0].URL})
				Expect(stemRec.Code).To(Equal(http.StatusOK))
				body, err := io.ReadAll(stemRec.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal(dummy.StemContents([]byte("cool_jamz"), "vocals")))

				s := status()
				Expect(s.Submitted).To(BeTrue())
				Expect(s.Running).To(BeFalse())
				Expect(s.Progress).To(BeNumerically("~", 1.0, 1e-9))
				Expect(s.Log).To(ContainSubstring("Separating track"))
				Expect(s.Log).NotTo(ContainSubstring("seconds/s"))

				html := getPage()
				Expect(html).To(ContainSubstring("🥁 Drums"))
				Expect(html).To(ContainSubstring(`src="/output/my%20song.mp3/htdemucs/other.mp3"`))
			})

			It("renders a missing stem as a failed extraction", func() {
				dummyExecutor.SkipStems = []string{"bass"}

				Expect(submit().Code).To(Equal(http.StatusOK))
				html := getPage()
				Expect(html).To(ContainSubstring("Bass extraction failed"))
				Expect(html).To(ContainSubstring("🎤 Vocals"))
			})

			It("keeps the failure in the session and requires a resubmit", func() {
				dummyExecutor.Fail = true

				rec := submit()
				Expect(rec.Code).To(Equal(http.StatusInternalServerError))
				Expect(testinglib.DecodeJSONError(rec.Body).Code).To(Equal(string(separationerrors.SeparationFailedCode)))

				s := status()
				Expect(s.Submitted).To(BeFalse())
				Expect(s.Error).To(Equal("Audio processing failed"))

				html := getPage()
				Expect(html).To(ContainSubstring("Processing error: Audio processing failed"))
				Expect(html).To(ContainSubstring("CUDA out of memory"))
			})

			It("resets the submitted flag when the config changes", func() {
				Expect(submit().Code).To(Equal(http.StatusOK))
				Expect(status().Submitted).To(BeTrue())

				Expect(updateConfig(url.Values{"stem_mode": {"two_stems"}}).Code).To(Equal(http.StatusOK))
				Expect(status().Submitted).To(BeFalse())
			})
		})
	})

	It("reports status only for known sessions", func() {
		rec := serve(testinglib.RequestFactory{Method: http.MethodGet, Target: "/session/status"})
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
