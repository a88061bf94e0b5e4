package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlling_poolspa/internal/equipment"
)

var t0 = time.Date(2026, 7, 4, 13, 0, 0, 0, time.UTC)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestDebouncer_BounceBurstYieldsOneEdge(t *testing.T) {
	d := NewDebouncer(DefaultDebounce)
	bit := uint8(1 << equipment.ButtonFilterPool)

	edges := 0
	// contact chatters every 5 ms for 40 ms, then holds
	level := false
	for i := 0; i <= 8; i++ {
		level = !level
		var raw uint8
		if level {
			raw = bit
		}
		if d.Update(t0.Add(ms(5*i)), raw) != 0 {
			edges++
		}
	}
	assert.Zero(t, edges, "no edge while bouncing")

	for i := 0; i < 20; i++ {
		if d.Update(t0.Add(ms(45+5*i)), bit) != 0 {
			edges++
		}
	}
	assert.Equal(t, 1, edges)
	assert.True(t, d.Pressed(equipment.ButtonFilterPool))
}

func TestDebouncer_ShortGlitchIgnored(t *testing.T) {
	d := NewDebouncer(DefaultDebounce)
	bit := uint8(1 << equipment.ButtonHeatSpa)

	assert.Zero(t, d.Update(t0, bit))
	assert.Zero(t, d.Update(t0.Add(ms(30)), bit))
	assert.Zero(t, d.Update(t0.Add(ms(40)), 0))
	for i := 1; i < 10; i++ {
		assert.Zero(t, d.Update(t0.Add(ms(40+10*i)), 0))
	}
	assert.False(t, d.Pressed(equipment.ButtonHeatSpa))
}

func TestDebouncer_ReleaseEmitsNothing(t *testing.T) {
	d := NewDebouncer(ms(50))
	bit := uint8(1 << equipment.ButtonMenu)

	d.Update(t0, bit)
	assert.Equal(t, bit, d.Update(t0.Add(ms(50)), bit))
	d.Update(t0.Add(ms(60)), 0)
	assert.Zero(t, d.Update(t0.Add(ms(120)), 0))
	assert.False(t, d.Pressed(equipment.ButtonMenu))
}

func feedSeq(e *Encoder, seq []uint8) {
	for _, s := range seq {
		e.Feed(s)
	}
}

func TestEncoder_FullDetents(t *testing.T) {
	e := NewEncoder(DefaultStepsPerDetent)
	e.Reset(0b00)

	// 00 -> 10 -> 11 -> 01 -> 00 is one detent in the positive direction
	feedSeq(e, []uint8{0b10, 0b11, 0b01, 0b00})
	assert.Equal(t, 1, e.Take())
	assert.Equal(t, 0, e.Take())

	feedSeq(e, []uint8{0b01, 0b11, 0b10, 0b00, 0b01, 0b11, 0b10, 0b00})
	assert.Equal(t, -2, e.Take())
}

func TestEncoder_InvalidTransitionsDropped(t *testing.T) {
	e := NewEncoder(DefaultStepsPerDetent)
	e.Reset(0b00)

	// both bits flipping is noise and never counts
	feedSeq(e, []uint8{0b11, 0b00, 0b11, 0b00})
	assert.Equal(t, 0, e.Take())

	// partial detent does not emit
	feedSeq(e, []uint8{0b10, 0b11})
	assert.Equal(t, 0, e.Take())
}

func TestQueue_DropsOldestWhenFull(t *testing.T) {
	q := NewQueue(3)
	for b := 0; b < 5; b++ {
		q.Push(RemoteEvent{Kind: RemoteButton, Button: equipment.Button(b)})
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(2), q.Dropped())

	out := make([]RemoteEvent, 8)
	n := q.Drain(out)
	require.Equal(t, 3, n)
	assert.Equal(t, equipment.Button(2), out[0].Button)
	assert.Equal(t, equipment.Button(4), out[2].Button)
	assert.Zero(t, q.Len())
}

func TestQueue_DrainNeverWaits(t *testing.T) {
	q := NewQueue(4)
	q.Push(RemoteEvent{Kind: RemoteStop})

	q.mu.Lock()
	n := q.Drain(make([]RemoteEvent, 4))
	q.mu.Unlock()
	assert.Zero(t, n, "drain gives up while the producer holds the lock")

	assert.Equal(t, 1, q.Drain(make([]RemoteEvent, 4)))
}

func TestLayer_PollMergesSources(t *testing.T) {
	enc := NewEncoder(DefaultStepsPerDetent)
	q := NewQueue(8)
	l := NewLayer(NewDebouncer(DefaultDebounce), enc, q)

	q.Push(RemoteEvent{Kind: RemoteButton, Button: equipment.ButtonPoolLight, Source: "http"})
	q.Push(RemoteEvent{Kind: RemoteTempDown})
	q.Push(RemoteEvent{Kind: RemoteButton, Button: equipment.Button(9)})
	q.Push(RemoteEvent{Kind: RemoteStop})
	feedSeq(enc, []uint8{0b10, 0b11, 0b01, 0b00, 0b10, 0b11, 0b01, 0b00})

	evs := l.Poll(t0, 0)
	require.Len(t, evs, 4)
	assert.Equal(t, Event{Kind: KindEncoder, Delta: 2}, evs[0])
	assert.Equal(t, Event{Kind: KindButton, Button: equipment.ButtonPoolLight, Remote: true, Source: "http"}, evs[1])
	assert.Equal(t, Event{Kind: KindEncoder, Delta: -1, Remote: true}, evs[2])
	assert.Equal(t, KindStop, evs[3].Kind)

	assert.Empty(t, l.Poll(t0.Add(ms(10)), 0))
}

func TestLayer_PhysicalPress(t *testing.T) {
	l := NewLayer(NewDebouncer(DefaultDebounce), nil, nil)
	raw := uint8(1<<equipment.ButtonHeatPool | 1<<equipment.ButtonSpaJets)

	assert.Empty(t, l.Poll(t0, raw))
	evs := l.Poll(t0.Add(ms(50)), raw)
	require.Len(t, evs, 2)
	assert.Equal(t, equipment.ButtonHeatPool, evs[0].Button)
	assert.Equal(t, equipment.ButtonSpaJets, evs[1].Button)
	assert.Empty(t, l.Poll(t0.Add(ms(60)), raw))
}
