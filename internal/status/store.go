package status

import (
	"sync/atomic"
	"time"

	"controlling_poolspa/internal/models"
)

// Store holds the latest published snapshot. The control loop is the only
// writer; readers get a pointer they must not modify.
type Store struct {
	cur     atomic.Pointer[models.PoolState]
	version atomic.Uint64
}

// NewStore starts with an idle snapshot so readers never see nil.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&models.PoolState{
		Mode:        "IDLE",
		Sequencer:   "IDLE",
		Valves:      "UNDEFINED",
		Pump:        "NONE",
		HeaterArmed: "NONE",
		Relays:      []string{},
		DisplayPage: "STATUS",
		UpdatedAt:   time.Now().UTC(),
	})
	return s
}

// Publish replaces the snapshot. st must not be modified afterwards.
func (s *Store) Publish(st *models.PoolState) {
	s.cur.Store(st)
	s.version.Add(1)
}

// Load returns the current snapshot.
func (s *Store) Load() *models.PoolState { return s.cur.Load() }

// Version counts publishes; pollers use it to skip unchanged ticks.
func (s *Store) Version() uint64 { return s.version.Load() }
