package cafe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/latteboxd/latteboxd/internal/models"
)

// Phase mirrors the UI loading states for a search.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseGeneratingText  Phase = "generating_text"
	PhaseGeneratingImage Phase = "generating_image"
	PhaseComplete        Phase = "complete"
	PhaseError           Phase = "error"
)

// PlaceholderPosterURL stands in when poster generation fails, so a
// profile is never left without a visual.
const PlaceholderPosterURL = "https://picsum.photos/800/1200?blur=2"

const searchErrorMessage = "Failed to generate cafe reviews. Please check your API key or try again."

const defaultSearchTimeout = 2 * time.Minute

// Generator produces cafe profiles and poster images.
type Generator interface {
	GenerateProfile(ctx context.Context, query string) (*models.CafeProfile, error)
	GeneratePoster(ctx context.Context, visualPrompt string) (string, error)
}

// Snapshot is the observable state of the current search.
type Snapshot struct {
	Generation uint64              `json:"generation"`
	Phase      Phase               `json:"phase"`
	Query      string              `json:"query,omitempty"`
	Profile    *models.CafeProfile `json:"profile,omitempty"`
	PosterURL  string              `json:"posterUrl,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Service runs searches against the generator and tracks their state.
// Each search gets a monotonically increasing generation number; results
// arriving for a superseded generation are discarded, so a stale in-flight
// request can never overwrite a newer one.
type Service struct {
	gen     Generator
	logger  *zap.SugaredLogger
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
	snapshot   Snapshot
	subs       map[chan Snapshot]struct{}
}

func NewService(gen Generator, logger *zap.SugaredLogger) *Service {
	return &Service{
		gen:      gen,
		logger:   logger,
		timeout:  defaultSearchTimeout,
		snapshot: Snapshot{Phase: PhaseIdle},
		subs:     make(map[chan Snapshot]struct{}),
	}
}

// Search starts generating a profile for the query and returns the
// generation number assigned to it. Progress is observable via Current
// and Subscribe. The poster request is only issued once the profile text
// has resolved.
func (s *Service) Search(query string) uint64 {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.snapshot = Snapshot{
		Generation: generation,
		Phase:      PhaseGeneratingText,
		Query:      query,
	}
	s.publishLocked()
	s.mu.Unlock()

	go s.run(generation, query)

	return generation
}

// Reset returns the service to its idle home state.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.snapshot = Snapshot{Generation: s.generation, Phase: PhaseIdle}
	s.publishLocked()
}

// Current returns the latest snapshot.
func (s *Service) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Subscribe registers for snapshot updates. The returned cancel func must
// be called when done. Slow consumers miss intermediate snapshots rather
// than blocking the search.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}

	return ch, cancel
}

func (s *Service) run(generation uint64, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	profile, err := s.gen.GenerateProfile(ctx, query)
	if err != nil {
		s.logger.Warnw("profile generation failed", "query", query, "error", err)
		s.transition(generation, func(snap *Snapshot) {
			snap.Phase = PhaseError
			snap.Error = searchErrorMessage
			snap.Profile = nil
			snap.PosterURL = ""
		})
		return
	}

	// If a newer search superseded this one, stop before issuing the
	// poster request at all.
	ok := s.transition(generation, func(snap *Snapshot) {
		snap.Phase = PhaseGeneratingImage
		snap.Profile = profile
	})
	if !ok {
		return
	}

	poster, err := s.gen.GeneratePoster(ctx, profile.PosterPrompt)
	if err != nil {
		s.logger.Warnw("poster generation failed, substituting placeholder", "query", query, "error", err)
		poster = PlaceholderPosterURL
	}

	s.transition(generation, func(snap *Snapshot) {
		snap.Phase = PhaseComplete
		snap.PosterURL = poster
	})
}

// transition applies mutate to the snapshot if generation is still
// current. Returns false when the result was stale and dropped.
func (s *Service) transition(generation uint64, mutate func(*Snapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		return false
	}

	mutate(&s.snapshot)
	s.publishLocked()
	return true
}

func (s *Service) publishLocked() {
	for ch := range s.subs {
		select {
		case ch <- s.snapshot:
		default:
		}
	}
}
