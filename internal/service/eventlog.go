package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errUnknownEventType = errors.New("unknown event type")
)

var eventTypes = map[string]bool{
	models.EventModeChange:  true,
	models.EventRejected:    true,
	models.EventAccessory:   true,
	models.EventSetpoint:    true,
	models.EventTimeout:     true,
	models.EventSchedule:    true,
	models.EventStop:        true,
	models.EventSensorFault: true,
	models.EventFault:       true,
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeRange converts both bounds to UTC and validates their order.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from, to = normalizeToUTC(from), normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errInvalidTimeRange
	}
	return from, to, nil
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}

	eventType := normalizeEventType(f.Type)
	if eventType != "" && !eventTypes[eventType] {
		return time.Time{}, time.Time{}, "", errUnknownEventType
	}
	return from, to, eventType, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.PoolEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ, clampLimit(f.Limit))
}

// IsFilterError reports whether err came from a malformed filter rather than
// the repository.
func IsFilterError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, errUnknownEventType)
}
