package app

import (
	"sync"

	"go.uber.org/zap"

	"github.com/latteboxd/latteboxd/internal/models"
)

// SessionReader yields the persisted session, if any.
type SessionReader interface {
	GetCurrentUser() (*models.PublicUser, error)
}

// State is the in-memory identity of the running UI session. A nil user
// means guest mode.
type State struct {
	mu   sync.RWMutex
	user *models.PublicUser
}

func NewState() *State {
	return &State{}
}

// Restore runs once at startup: it reads any persisted session and adopts
// it as the active identity. Absence is a normal, silent outcome; a
// corrupt session blob is surfaced so startup can abort.
func (s *State) Restore(sessions SessionReader, logger *zap.SugaredLogger) error {
	user, err := sessions.GetCurrentUser()
	if err != nil {
		return err
	}

	if user == nil {
		return nil
	}

	s.SetUser(user)
	logger.Infow("restored session", "username", user.Username)
	return nil
}

// User returns the active user, nil for guest.
func (s *State) User() *models.PublicUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// SetUser adopts the given user as the active identity.
func (s *State) SetUser(user *models.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user == nil {
		s.user = nil
		return
	}
	u := *user
	s.user = &u
}

// Clear drops back to guest mode.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}
