package session

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
)

const CookieName = "stem_splitter_session"

// Store keeps sessions in memory, keyed by the session cookie.
type Store struct {
	lock          sync.RWMutex
	sessions      map[string]*Session
	defaultConfig func() entity.JobConfig
}

func NewStore(defaultConfig func() entity.JobConfig) *Store {
	return &Store{
		sessions:      map[string]*Session{},
		defaultConfig: defaultConfig,
	}
}

func (s *Store) Get(id string) (*Session, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Store) Create() *Session {
	sess := New(uuid.NewString(), s.defaultConfig())

	s.lock.Lock()
	defer s.lock.Unlock()

	s.sessions[sess.ID] = sess
	return sess
}

func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.sessions)
}

// FromRequest looks up the session named by the request cookie.
func (s *Store) FromRequest(c echo.Context) (*Session, bool) {
	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return nil, false
	}

	return s.Get(cookie.Value)
}

// Ensure returns the request's session, creating one and setting its
// cookie when there is none.
func (s *Store) Ensure(c echo.Context) *Session {
	if sess, ok := s.FromRequest(c); ok {
		return sess
	}

	sess := s.Create()
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return sess
}
