package session

import (
	"sync"

	"github.com/veedubyou/stem-splitter/src/server/internal/progress"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/splitter"
)

const progressDesc = "Separating"

// Outcome is what the last submitted job left behind.
type Outcome struct {
	Result *entity.Result
	Error  string
	Trace  string
}

// Session is one browser's view of the application. Nothing in it
// outlives the process.
type Session struct {
	ID string

	lock      sync.RWMutex
	config    entity.JobConfig
	upload    *entity.Upload
	submitted bool
	running   bool
	outcome   Outcome

	shutdownOnce sync.Once

	LogWidget    *TextWidget
	ProgressBar  *ProgressWidget
	ProgressText *TextWidget
}

func New(id string, config entity.JobConfig) *Session {
	return &Session{
		ID:           id,
		config:       config,
		LogWidget:    &TextWidget{},
		ProgressBar:  &ProgressWidget{},
		ProgressText: &TextWidget{},
	}
}

func (s *Session) Config() entity.JobConfig {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.config
}

// SetConfig replaces the job config. A change means the user has to submit
// again.
func (s *Session) SetConfig(config entity.JobConfig) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if config != s.config {
		s.submitted = false
	}
	s.config = config
}

func (s *Session) Upload() *entity.Upload {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.upload
}

func (s *Session) SetUpload(upload entity.Upload) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.upload = &upload
	s.submitted = false
	s.outcome = Outcome{}
}

func (s *Session) ClearUpload() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.upload = nil
	s.submitted = false
	s.outcome = Outcome{}
}

func (s *Session) Submitted() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.submitted
}

func (s *Session) Running() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.running
}

// BeginJob marks the session as submitted and running and resets the
// widgets. It reports false if a job is already running.
func (s *Session) BeginJob() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.running {
		return false
	}

	s.running = true
	s.submitted = true
	s.outcome = Outcome{}
	s.LogWidget.SetText("")
	s.ProgressBar.SetProgress(0)
	s.ProgressText.SetText("")

	return true
}

func (s *Session) FinishJob(result entity.Result) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.running = false
	s.outcome = Outcome{Result: &result}
}

// FailJob records the error and resets the submitted flag so the user has
// to resubmit.
func (s *Session) FailJob(message string, trace string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.running = false
	s.submitted = false
	s.outcome = Outcome{Error: message, Trace: trace}
}

func (s *Session) Outcome() Outcome {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.outcome
}

// Monitor wires this session's widgets to one demucs run.
func (s *Session) Monitor() splitter.Monitor {
	return splitter.Monitor{
		Log:      s.LogWidget,
		Progress: progress.NewAdapter(s.ProgressBar, s.ProgressText, progressDesc, nil),
	}
}

// EnsureShutdownListener runs start the first time it is called for this
// session only.
func (s *Session) EnsureShutdownListener(start func()) {
	s.shutdownOnce.Do(start)
}
