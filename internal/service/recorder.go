package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/repository"
)

const (
	defaultRecorderBuffer = 256
	writeTimeout          = 5 * time.Second
)

// SampleWriter mirrors temperature samples to a time-series store.
type SampleWriter interface {
	WriteSample(models.TempSample)
}

// Recorder takes events, samples and settings off the control loop and
// persists them on its own goroutine. Every send is non-blocking; a full
// buffer drops the record and bumps Dropped.
type Recorder struct {
	events   chan models.PoolEvent
	samples  chan models.TempSample
	settings chan models.Settings

	repos  *repository.Repository
	mirrorMu sync.Mutex
	mirror   SampleWriter
	log    *logger.Logger

	dropped atomic.Uint64
}

func NewRecorder(repos *repository.Repository, buffer int, log *logger.Logger) *Recorder {
	if buffer <= 0 {
		buffer = defaultRecorderBuffer
	}
	return &Recorder{
		events:   make(chan models.PoolEvent, buffer),
		samples:  make(chan models.TempSample, buffer),
		settings: make(chan models.Settings, 1),
		repos:    repos,
		log:      log,
	}
}

// Mirror attaches an extra sample destination and may be called while Run
// is active. Mirror(nil) detaches it; once it returns, the old writer sees
// no further samples.
func (r *Recorder) Mirror(w SampleWriter) {
	r.mirrorMu.Lock()
	r.mirror = w
	r.mirrorMu.Unlock()
}

func (r *Recorder) Event(e models.PoolEvent) {
	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) Sample(s models.TempSample) {
	select {
	case r.samples <- s:
	default:
		r.dropped.Add(1)
	}
}

// Settings keeps only the newest value; an unsaved older one is replaced.
func (r *Recorder) Settings(s models.Settings) {
	for {
		select {
		case r.settings <- s:
			return
		default:
		}
		select {
		case <-r.settings:
		default:
		}
	}
}

func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Run persists records until ctx is done, then flushes what is buffered.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case e := <-r.events:
			r.saveEvent(e)
		case s := <-r.samples:
			r.saveSample(s)
		case s := <-r.settings:
			r.saveSettings(s)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case e := <-r.events:
			r.saveEvent(e)
		case s := <-r.samples:
			r.saveSample(s)
		case s := <-r.settings:
			r.saveSettings(s)
		default:
			return
		}
	}
}

func (r *Recorder) saveEvent(e models.PoolEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repos.Events.Append(ctx, e); err != nil {
		r.log.Warnw("event_persist_failed", "type", e.Type, "err", err)
	}
}

func (r *Recorder) saveSample(s models.TempSample) {
	r.mirrorMu.Lock()
	if r.mirror != nil {
		r.mirror.WriteSample(s)
	}
	r.mirrorMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repos.History.Append(ctx, s); err != nil {
		r.log.Warnw("sample_persist_failed", "err", err)
	}
}

func (r *Recorder) saveSettings(s models.Settings) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repos.Settings.Save(ctx, s); err != nil {
		r.log.Warnw("settings_persist_failed", "err", err)
	}
}
