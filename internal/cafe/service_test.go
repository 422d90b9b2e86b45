package cafe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/latteboxd/latteboxd/internal/cafe"
	"github.com/latteboxd/latteboxd/internal/models"
)

type fakeGenerator struct {
	mu          sync.Mutex
	profileErr  error
	posterErr   error
	posterCalls int

	// blockQuery makes GenerateProfile for that query wait until gate is
	// closed, to simulate a slow in-flight request.
	blockQuery string
	gate       chan struct{}
}

func (f *fakeGenerator) GenerateProfile(ctx context.Context, query string) (*models.CafeProfile, error) {
	f.mu.Lock()
	gate := f.gate
	block := f.blockQuery == query && gate != nil
	err := f.profileErr
	f.mu.Unlock()

	if block {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	return &models.CafeProfile{
		Name:         query,
		PosterPrompt: "poster prompt for " + query,
	}, nil
}

func (f *fakeGenerator) GeneratePoster(ctx context.Context, visualPrompt string) (string, error) {
	f.mu.Lock()
	f.posterCalls++
	err := f.posterErr
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	return "data:image/png;base64,poster", nil
}

func (f *fakeGenerator) posterCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posterCalls
}

func waitForPhase(t *testing.T, svc *cafe.Service, phase cafe.Phase) cafe.Snapshot {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := svc.Current()
		if snap.Phase == phase {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for phase %s, current %s", phase, svc.Current().Phase)
	return cafe.Snapshot{}
}

func TestSearchCompletes(t *testing.T) {
	gen := &fakeGenerator{}
	svc := cafe.NewService(gen, zap.NewNop().Sugar())

	updates, cancel := svc.Subscribe()
	defer cancel()

	generation := svc.Search("Fuglen Tokyo")

	snap := waitForPhase(t, svc, cafe.PhaseComplete)
	if snap.Generation != generation {
		t.Fatalf("expected generation %d, got %d", generation, snap.Generation)
	}
	if snap.Profile == nil || snap.Profile.Name != "Fuglen Tokyo" {
		t.Fatalf("expected profile for query, got %+v", snap.Profile)
	}
	if snap.PosterURL != "data:image/png;base64,poster" {
		t.Fatalf("unexpected poster url %q", snap.PosterURL)
	}

	// Subscribers observe the intermediate phases in order.
	var phases []cafe.Phase
	timeout := time.After(time.Second)
	for len(phases) < 3 {
		select {
		case snap := <-updates:
			phases = append(phases, snap.Phase)
		case <-timeout:
			t.Fatalf("timed out collecting phases, got %v", phases)
		}
	}
	want := []cafe.Phase{cafe.PhaseGeneratingText, cafe.PhaseGeneratingImage, cafe.PhaseComplete}
	for i, phase := range want {
		if phases[i] != phase {
			t.Fatalf("expected phase %s at %d, got %v", phase, i, phases)
		}
	}
}

func TestProfileFailureSkipsPoster(t *testing.T) {
	gen := &fakeGenerator{profileErr: errors.New("model unavailable")}
	svc := cafe.NewService(gen, zap.NewNop().Sugar())

	svc.Search("Vaporwave Cafe")

	snap := waitForPhase(t, svc, cafe.PhaseError)
	if snap.Error == "" {
		t.Fatalf("expected user-facing error message")
	}
	if snap.Profile != nil || snap.PosterURL != "" {
		t.Fatalf("expected profile and poster to be cleared, got %+v", snap)
	}
	if gen.posterCallCount() != 0 {
		t.Fatalf("expected no poster request after profile failure")
	}
}

func TestPosterFailureFallsBackToPlaceholder(t *testing.T) {
	gen := &fakeGenerator{posterErr: errors.New("no image generated")}
	svc := cafe.NewService(gen, zap.NewNop().Sugar())

	svc.Search("Noir Cafe")

	snap := waitForPhase(t, svc, cafe.PhaseComplete)
	if snap.PosterURL != cafe.PlaceholderPosterURL {
		t.Fatalf("expected placeholder poster, got %q", snap.PosterURL)
	}
	if snap.Error != "" {
		t.Fatalf("poster fallback must not surface an error, got %q", snap.Error)
	}
}

func TestStaleSearchIsDiscarded(t *testing.T) {
	gen := &fakeGenerator{blockQuery: "slow cafe", gate: make(chan struct{})}
	svc := cafe.NewService(gen, zap.NewNop().Sugar())

	first := svc.Search("slow cafe")
	second := svc.Search("fast cafe")

	snap := waitForPhase(t, svc, cafe.PhaseComplete)
	if snap.Generation != second {
		t.Fatalf("expected generation %d to win, got %d", second, snap.Generation)
	}

	// Let the first search resolve; its result must be dropped.
	close(gen.gate)
	time.Sleep(50 * time.Millisecond)

	snap = svc.Current()
	if snap.Generation != second || snap.Profile.Name != "fast cafe" {
		t.Fatalf("stale search overwrote newer result: %+v", snap)
	}
	if first == second {
		t.Fatalf("generations must be distinct")
	}
	// Only the winning search reached poster generation.
	if gen.posterCallCount() != 1 {
		t.Fatalf("expected exactly one poster request, got %d", gen.posterCallCount())
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	gen := &fakeGenerator{}
	svc := cafe.NewService(gen, zap.NewNop().Sugar())

	svc.Search("Fuglen Tokyo")
	waitForPhase(t, svc, cafe.PhaseComplete)

	svc.Reset()
	snap := svc.Current()
	if snap.Phase != cafe.PhaseIdle || snap.Profile != nil {
		t.Fatalf("expected idle snapshot after reset, got %+v", snap)
	}
}
