package input

import (
	"time"

	"controlling_poolspa/internal/equipment"
)

// Kind is the kind of a clean input event.
type Kind uint8

const (
	KindButton Kind = iota + 1
	KindEncoder
	KindStop
)

// Event is one debounced edge, encoder tick or stop request.
type Event struct {
	Kind   Kind
	Button equipment.Button
	Delta  int
	Remote bool
	Source string
}

// maxEvents bounds the edges a single poll can report.
const maxEvents = 32

// Layer merges physical buttons, the encoder and the remote queue into one
// stream of events, polled once per control tick.
type Layer struct {
	debounce *Debouncer
	encoder  *Encoder
	remote   *Queue

	events  [maxEvents]Event
	pending [maxEvents]RemoteEvent
}

func NewLayer(debounce *Debouncer, encoder *Encoder, remote *Queue) *Layer {
	return &Layer{debounce: debounce, encoder: encoder, remote: remote}
}

// Poll returns everything accumulated since the previous call. The returned
// slice aliases an internal buffer and is valid until the next Poll.
func (l *Layer) Poll(now time.Time, rawButtons uint8) []Event {
	n := 0

	if l.debounce != nil {
		pressed := l.debounce.Update(now, rawButtons)
		for b := 0; b < equipment.NumButtons && pressed != 0; b++ {
			if pressed&(1<<b) != 0 {
				l.events[n] = Event{Kind: KindButton, Button: equipment.Button(b)}
				n++
			}
		}
	}

	if l.encoder != nil {
		if d := l.encoder.Take(); d != 0 {
			l.events[n] = Event{Kind: KindEncoder, Delta: d}
			n++
		}
	}

	if l.remote != nil {
		moved := l.remote.Drain(l.pending[:maxEvents-n])
		for _, r := range l.pending[:moved] {
			ev := Event{Remote: true, Source: r.Source}
			switch r.Kind {
			case RemoteButton:
				if !r.Button.Valid() {
					continue
				}
				ev.Kind = KindButton
				ev.Button = r.Button
			case RemoteTempUp:
				ev.Kind, ev.Delta = KindEncoder, 1
			case RemoteTempDown:
				ev.Kind, ev.Delta = KindEncoder, -1
			case RemoteStop:
				ev.Kind = KindStop
			default:
				continue
			}
			l.events[n] = ev
			n++
		}
	}

	return l.events[:n]
}
