package domain

import (
	"fmt"
	"sort"
	"time"
)

type Slot struct {
	ID              string    `json:"id"`
	Date            Date      `json:"date"`
	StartTime       TimeOfDay `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	IsBooked        bool      `json:"is_booked"`
	Version         int64     `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// StartsAt combines date and start time in UTC.
func (s *Slot) StartsAt() time.Time {
	return s.Date.Time().Add(time.Duration(s.StartTime) * time.Minute)
}

type CreateSlotsReq struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// Parse validates the request and returns the date and the distinct times in
// ascending order.
func (r *CreateSlotsReq) Parse() (Date, []TimeOfDay, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return Date{}, nil, err
	}
	times := make([]TimeOfDay, 0, len(r.Times))
	for _, raw := range r.Times {
		t, err := ParseTimeOfDay(raw)
		if err != nil {
			return Date{}, nil, err
		}
		times = append(times, t)
	}
	times, err = NormalizeTimes(times)
	if err != nil {
		return Date{}, nil, err
	}
	return date, times, nil
}

// NormalizeTimes collapses duplicates and sorts ascending. An empty set is invalid.
func NormalizeTimes(times []TimeOfDay) ([]TimeOfDay, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: at least one time is required", ErrValidation)
	}
	seen := make(map[TimeOfDay]struct{}, len(times))
	out := make([]TimeOfDay, 0, len(times))
	for _, t := range times {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: time out of range", ErrValidation)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})
}
