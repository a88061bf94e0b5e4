package hardware

import (
	"github.com/warthog618/go-gpiocdev"

	"controlling_poolspa/internal/input"
)

// quadrature tracks the A/B levels from edge events and feeds the decoder.
// gpiocdev delivers the events of one request from a single goroutine.
type quadrature struct {
	enc  *input.Encoder
	a, b int
}

func newQuadrature(enc *input.Encoder) *quadrature { return &quadrature{enc: enc} }

func (q *quadrature) reset(a, b int) {
	q.a, q.b = a, b
	q.enc.Reset(q.ab())
}

func (q *quadrature) ab() uint8 { return uint8(q.a&1)<<1 | uint8(q.b&1) }

func (q *quadrature) edge(offset, pinA int, rising bool) {
	level := 0
	if rising {
		level = 1
	}
	if offset == pinA {
		q.a = level
	} else {
		q.b = level
	}
	q.enc.Feed(q.ab())
}

func (q *quadrature) handle(pinA, pinB int) func(gpiocdev.LineEvent) {
	return func(evt gpiocdev.LineEvent) {
		if evt.Offset != pinA && evt.Offset != pinB {
			return
		}
		q.edge(evt.Offset, pinA, evt.Type == gpiocdev.LineEventRisingEdge)
	}
}
