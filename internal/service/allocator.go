package service

import (
	"math/rand"
	"sync"
	"time"
)

const firstSlotDelay = 30 * time.Minute

// SlotAllocator spreads posts evenly across the daily business window.
// Hours are validated by the config layer: PostsPerDay >= 1 and 0 <= StartHour < EndHour <= 24.
type SlotAllocator struct {
	StartHour   int
	EndHour     int
	PostsPerDay int
	Location    *time.Location

	mu   sync.Mutex
	rand *rand.Rand
}

func NewSlotAllocator(startHour, endHour, postsPerDay int, loc *time.Location) *SlotAllocator {
	return &SlotAllocator{
		StartHour:   startHour,
		EndHour:     endHour,
		PostsPerDay: postsPerDay,
		Location:    loc,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Interval is the spacing between consecutive posts.
func (a *SlotAllocator) Interval() time.Duration {
	return time.Duration(a.EndHour-a.StartHour) * time.Hour / time.Duration(a.PostsPerDay)
}

// NextSlot returns the next publish time after latest, or relative to now when nothing
// is scheduled yet. The sub-second part is randomized.
func (a *SlotAllocator) NextSlot(now time.Time, latest *time.Time) time.Time {
	now = now.In(a.Location)

	var candidate time.Time
	if latest != nil {
		candidate = latest.In(a.Location).Add(a.Interval())
		switch {
		case candidate.Hour() >= a.EndHour:
			candidate = a.startOfWindow(candidate.AddDate(0, 0, 1))
		case candidate.Hour() < a.StartHour:
			// crossed midnight into the early hours
			candidate = a.startOfWindow(candidate)
		}
	} else {
		switch {
		case now.Hour() < a.StartHour:
			candidate = a.startOfWindow(now)
		case now.Hour() >= a.EndHour:
			candidate = a.startOfWindow(now.AddDate(0, 0, 1))
		default:
			candidate = now.Add(firstSlotDelay)
		}
	}

	return a.jitter(candidate)
}

func (a *SlotAllocator) startOfWindow(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), a.StartHour, 0, 0, 0, a.Location)
}

func (a *SlotAllocator) jitter(t time.Time) time.Time {
	a.mu.Lock()
	micros := a.rand.Intn(1_000_000)
	a.mu.Unlock()

	truncated := t.Truncate(time.Second)
	return truncated.Add(time.Duration(micros) * time.Microsecond)
}
