package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/repository"
)

type memRepos struct {
	mu       sync.Mutex
	events   []models.PoolEvent
	samples  []models.TempSample
	settings []models.Settings
	visits   map[string]models.Visitor
	failNext error
}

func (m *memRepos) Append(_ context.Context, e models.PoolEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memRepos) List(context.Context, time.Time, time.Time, string, int) ([]models.PoolEvent, error) {
	return nil, nil
}

type memHistory struct{ *memRepos }

func (h memHistory) Append(_ context.Context, s models.TempSample) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, s)
	return nil
}

func (h memHistory) List(_ context.Context, from, to time.Time, limit int) ([]models.TempSample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.TempSample
	for _, s := range h.samples {
		if (!from.IsZero() && s.TakenAt.Before(from)) || (!to.IsZero() && s.TakenAt.After(to)) {
			continue
		}
		out = append(out, s)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memSettings struct{ *memRepos }

func (s memSettings) Save(_ context.Context, v models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = append(s.settings, v)
	return nil
}

func (s memSettings) Load(context.Context) (models.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.settings) == 0 {
		return models.Settings{}, false, nil
	}
	return s.settings[len(s.settings)-1], true, nil
}

type mirror struct {
	mu  sync.Mutex
	got []models.TempSample
}

func (m *mirror) WriteSample(s models.TempSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, s)
}

func newMemRepository() (*repository.Repository, *memRepos) {
	m := &memRepos{}
	return &repository.Repository{Events: m, History: memHistory{m}, Settings: memSettings{m}}, m
}

func TestRecorder_PersistsOnFlush(t *testing.T) {
	repos, mem := newMemRepository()
	rec := NewRecorder(repos, 4, logger.Nop())
	mir := &mirror{}
	rec.Mirror(mir)

	rec.Event(models.PoolEvent{EventID: "a", Type: models.EventModeChange})
	rec.Sample(models.TempSample{WaterF: 81})
	rec.Settings(models.Settings{PoolSetpointF: 80})
	rec.Settings(models.Settings{PoolSetpointF: 84})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	if len(mem.events) != 1 || mem.events[0].EventID != "a" {
		t.Fatalf("unexpected events: %+v", mem.events)
	}
	if len(mem.samples) != 1 || len(mir.got) != 1 {
		t.Fatalf("sample not persisted or mirrored: repo=%d mirror=%d", len(mem.samples), len(mir.got))
	}
	if len(mem.settings) != 1 || mem.settings[0].PoolSetpointF != 84 {
		t.Fatalf("expected only the newest settings, got %+v", mem.settings)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	repos, _ := newMemRepository()
	rec := NewRecorder(repos, 2, logger.Nop())

	for i := 0; i < 5; i++ {
		rec.Event(models.PoolEvent{})
	}
	rec.Sample(models.TempSample{})
	if rec.Dropped() != 3 {
		t.Fatalf("expected 3 dropped, got %d", rec.Dropped())
	}
}

func TestRecorder_RepoErrorDoesNotStop(t *testing.T) {
	repos, mem := newMemRepository()
	mem.failNext = errors.New("disk full")
	rec := NewRecorder(repos, 4, logger.Nop())

	rec.Event(models.PoolEvent{EventID: "lost"})
	rec.Event(models.PoolEvent{EventID: "kept"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	if len(mem.events) != 1 || mem.events[0].EventID != "kept" {
		t.Fatalf("unexpected events: %+v", mem.events)
	}
}

func TestHistoryService_List(t *testing.T) {
	repos, _ := newMemRepository()
	base := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = repos.History.Append(context.Background(), models.TempSample{TakenAt: base.Add(time.Duration(i) * time.Minute)})
	}
	svc := NewHistoryService(repos.History)

	got, err := svc.List(context.Background(), HistoryFilter{From: base.Add(time.Minute), Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || !got[1].TakenAt.Equal(base.Add(4*time.Minute)) {
		t.Fatalf("unexpected samples: %+v", got)
	}

	_, err = svc.List(context.Background(), HistoryFilter{From: base.Add(time.Hour), To: base})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange, got %v", err)
	}
}

func TestRecorder_MirrorAttachedAndDetachedWhileRunning(t *testing.T) {
	repos, mem := newMemRepository()
	rec := NewRecorder(repos, 4, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(ctx)
	}()

	waitSamples := func(n int) {
		t.Helper()
		deadline := time.Now().Add(time.Second)
		for {
			mem.mu.Lock()
			got := len(mem.samples)
			mem.mu.Unlock()
			if got >= n {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("persisted %d samples, want %d", got, n)
			}
			time.Sleep(2 * time.Millisecond)
		}
	}

	rec.Sample(models.TempSample{WaterF: 80})
	waitSamples(1)

	mir := &mirror{}
	rec.Mirror(mir)
	rec.Sample(models.TempSample{WaterF: 81})
	waitSamples(2)

	rec.Mirror(nil)
	rec.Sample(models.TempSample{WaterF: 82})
	waitSamples(3)

	cancel()
	<-done

	mir.mu.Lock()
	defer mir.mu.Unlock()
	if len(mir.got) != 1 || mir.got[0].WaterF != 81 {
		t.Fatalf("mirror saw %+v, want only the 81F sample", mir.got)
	}
}
