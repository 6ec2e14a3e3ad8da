// Package availability decides whether a time window is free for a
// resource. Windows are half-open: [Start, End).
package availability

import (
	"fms/src/apperror"
	"fms/src/types"
	"time"
)

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Valid() bool {
	return w.End.After(w.Start)
}

func Overlaps(a, b Window) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

type Reservation struct {
	ResourceID string
	Window     Window
	Status     types.ReservationStatus
}

type StatusSet map[types.ReservationStatus]struct{}

func NewStatusSet(statuses ...types.ReservationStatus) StatusSet {
	set := StatusSet{}
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

func (s StatusSet) Has(status types.ReservationStatus) bool {
	_, ok := s[status]
	return ok
}

func (s StatusSet) Slice() []types.ReservationStatus {
	out := make([]types.ReservationStatus, 0, len(s))
	for _, status := range []types.ReservationStatus{
		types.RESERVATION_PENDING,
		types.RESERVATION_RESERVED,
		types.RESERVATION_CONFIRMED,
		types.RESERVATION_CANCELLED,
		types.RESERVATION_EXPIRED,
	} {
		if s.Has(status) {
			out = append(out, status)
		}
	}
	return out
}

// Blocking lists the statuses that still hold a resource.
var Blocking = NewStatusSet(
	types.RESERVATION_PENDING,
	types.RESERVATION_RESERVED,
	types.RESERVATION_CONFIRMED,
)

func HasConflict(resourceID string, proposed Window, reservations []Reservation, blocking StatusSet) bool {
	for _, r := range reservations {
		if r.ResourceID != resourceID || !blocking.Has(r.Status) {
			continue
		}
		if Overlaps(r.Window, proposed) {
			return true
		}
	}
	return false
}

func HourWindow(start time.Time, hours int) Window {
	return Window{Start: start, End: start.Add(time.Duration(hours) * time.Hour)}
}

// MonthWindow adds calendar months, so Jan 31 plus one month normalizes the
// way time.AddDate does.
func MonthWindow(start time.Time, months int) Window {
	return Window{Start: start, End: start.AddDate(0, months, 0)}
}

// NextDayBoundary is local midnight at the start of the day after now.
func NextDayBoundary(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// CheckStart rejects windows starting before tomorrow unless the caller is
// an admin.
func CheckStart(start, now time.Time, loc *time.Location, admin bool) error {
	if admin {
		return nil
	}
	if start.Before(NextDayBoundary(now, loc)) {
		return apperror.ErrInvalidStartTime
	}
	return nil
}
