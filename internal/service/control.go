package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"controlling_poolspa/internal/equipment"
	"controlling_poolspa/internal/input"
)

var (
	ErrInvalidButton    = errors.New("invalid button")
	ErrInvalidDirection = errors.New("invalid direction: must be up or down")
)

// SourceHTTP tags events that arrive through the REST API.
const SourceHTTP = "http"

// ControlService turns API requests into remote events. It never calls into
// the control loop; the loop drains the queue on its next tick.
type ControlService struct {
	queue *input.Queue
}

func NewControlService(queue *input.Queue) *ControlService {
	return &ControlService{queue: queue}
}

func (s *ControlService) PressButton(ctx context.Context, button int, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if button < 0 || button >= equipment.NumButtons {
		return fmt.Errorf("%w: %d", ErrInvalidButton, button)
	}
	s.push(input.RemoteEvent{Kind: input.RemoteButton, Button: equipment.Button(button), Source: source})
	return nil
}

func (s *ControlService) AdjustTemp(ctx context.Context, direction string, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := input.RemoteEvent{Source: source}
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		ev.Kind = input.RemoteTempUp
	case "down":
		ev.Kind = input.RemoteTempDown
	default:
		return ErrInvalidDirection
	}
	s.push(ev)
	return nil
}

func (s *ControlService) Stop(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.push(input.RemoteEvent{Kind: input.RemoteStop, Source: source})
	return nil
}

func (s *ControlService) push(ev input.RemoteEvent) {
	if ev.Source == "" {
		ev.Source = SourceHTTP
	}
	s.queue.Push(ev)
}
