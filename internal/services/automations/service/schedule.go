package service

import (
	"math/rand"
	"time"

	dom "fanflow/internal/services/automations/domain"
)

// horizonDays caps the forward scan for the next active window so a
// never-true timing configuration cannot loop forever
const horizonDays = 8

// Scheduler answers "may this automation act now, and if not, when".
// The randomized human-like delay comes from randInt, seamed for tests.
type Scheduler struct {
	randInt func(n int) int
}

// NewScheduler constructs a Scheduler with the default random source
func NewScheduler() *Scheduler {
	return &Scheduler{randInt: rand.Intn}
}

// NewSchedulerWithRand constructs a Scheduler with an injected random source
func NewSchedulerWithRand(randInt func(n int) int) *Scheduler {
	return &Scheduler{randInt: randInt}
}

// IsActiveNow reports whether now falls inside the automation's configured
// weekday set and hour ranges, in its own time zone (default UTC)
func (s *Scheduler) IsActiveNow(a dom.Automation, now time.Time) bool {
	local := now.In(location(a.Timing))
	return weekdayAllowed(a.Timing, local) && hourAllowed(a.Timing, local)
}

// DelayFor picks a uniform random delay in [min,max] seconds; zero when the
// range is unset or degenerate
func (s *Scheduler) DelayFor(a dom.Automation) time.Duration {
	min, max := a.Timing.DelayMinSec, a.Timing.DelayMaxSec
	if max <= 0 {
		return 0
	}
	if min < 0 {
		min = 0
	}
	if min >= max {
		return time.Duration(max) * time.Second
	}
	return time.Duration(min+s.randInt(max-min+1)) * time.Second
}

// WithinLimits checks every configured window ceiling against the caller's
// current counts; absent keys impose no constraint
func (s *Scheduler) WithinLimits(a dom.Automation, counts map[string]int) bool {
	for window, ceiling := range a.Timing.Limits {
		if counts[window] >= ceiling {
			return false
		}
	}
	return true
}

// NextEligible computes the earliest instant the automation may act:
// the randomized delay is applied first, then the candidate is advanced past
// closed windows and saturated limits. Saturated limits compose by max.
func (s *Scheduler) NextEligible(a dom.Automation, now time.Time, counts map[string]int) time.Time {
	candidate := now.Add(s.DelayFor(a))
	candidate = s.nextWindowStart(a, candidate)

	if !s.WithinLimits(a, counts) {
		release := candidate
		for window, ceiling := range a.Timing.Limits {
			if counts[window] < ceiling {
				continue
			}
			if t := limitBoundary(window, candidate, location(a.Timing)); t.After(release) {
				release = t
			}
		}
		candidate = s.nextWindowStart(a, release)
	}
	return candidate
}

// nextWindowStart returns t when t is already inside an active window,
// otherwise the start of the earliest allowed window within the horizon.
// Past the horizon it gives up and returns the capped time.
func (s *Scheduler) nextWindowStart(a dom.Automation, t time.Time) time.Time {
	if s.IsActiveNow(a, t) {
		return t
	}
	loc := location(a.Timing)
	local := t.In(loc)

	for d := 0; d <= horizonDays; d++ {
		day := local.AddDate(0, 0, d)
		if !weekdayAllowed(a.Timing, day) {
			continue
		}
		from, ok := earliestStart(a.Timing, day, d == 0)
		if !ok {
			continue
		}
		start := atHour(day, from, loc)
		if start.After(t) {
			return start
		}
	}
	return t.AddDate(0, 0, horizonDays)
}

// earliestStart picks the earliest hour-range start on the given local day;
// for today only ranges that begin after the current fractional hour count
func earliestStart(tm dom.Timing, day time.Time, today bool) (float64, bool) {
	if len(tm.Hours) == 0 {
		if today {
			return 0, false // all-hours day, already past midnight
		}
		return 0, true
	}
	h := fractionalHour(day)
	best, found := 0.0, false
	for _, r := range tm.Hours {
		if r.From < 0 || r.From >= 24 {
			continue // malformed range cannot open a window
		}
		if today && r.From <= h {
			continue
		}
		if !found || r.From < best {
			best, found = r.From, true
		}
	}
	return best, found
}

// limitBoundary maps a saturated window to the instant it rolls over
func limitBoundary(window string, t time.Time, loc *time.Location) time.Time {
	switch window {
	case dom.LimitPerMinute:
		return t.Truncate(time.Minute).Add(time.Minute)
	case dom.LimitPerHour:
		return t.Truncate(time.Hour).Add(time.Hour)
	case dom.LimitPerDay, dom.LimitPerContent:
		local := t.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	case dom.LimitConcurrent:
		// no wall-clock rollover; re-check on the next minute
		return t.Truncate(time.Minute).Add(time.Minute)
	default:
		return t
	}
}

func location(tm dom.Timing) *time.Location {
	if tm.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tm.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// weekdayAllowed uses Monday=0 .. Sunday=6 to match stored weekday sets
func weekdayAllowed(tm dom.Timing, local time.Time) bool {
	if len(tm.Weekdays) == 0 {
		return true
	}
	wd := (int(local.Weekday()) + 6) % 7
	for _, d := range tm.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

func hourAllowed(tm dom.Timing, local time.Time) bool {
	if len(tm.Hours) == 0 {
		return true
	}
	h := fractionalHour(local)
	for _, r := range tm.Hours {
		if h >= r.From && h < r.To {
			return true
		}
	}
	return false
}

func fractionalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

func atHour(day time.Time, h float64, loc *time.Location) time.Time {
	whole := int(h)
	frac := h - float64(whole)
	mins := int(frac * 60)
	secs := int(frac*3600) - mins*60
	return time.Date(day.Year(), day.Month(), day.Day(), whole, mins, secs, 0, loc)
}
