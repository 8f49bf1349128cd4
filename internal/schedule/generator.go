// Package schedule computes candidate slot times for a site day.  It
// is pure: no I/O, deterministic for identical inputs, so it can be
// previewed for an admin and then materialized by the slot store with
// identical results.
package schedule

import (
	"fmt"
	"math"
	"time"
)

// ParseClock converts an HH:MM string into minutes since midnight.
// The whole string must be a clock value: trailing seconds or any
// other garbage is rejected, not silently dropped.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes since midnight back into HH:MM.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Plan computes the effective interval and the ordered list of slot
// times for one day.  The interval is the larger of the site's
// physical minimum and either the requested interval (when positive)
// or the window divided evenly across the target count.  Times start
// at open and step by the interval; anything past close is dropped,
// so fewer than loadsTarget slots is a valid outcome, not an error.
func Plan(open, close string, loadsTarget, siteMinInterval, requestedInterval int) (int, []string, error) {
	openMin, err := ParseClock(open)
	if err != nil {
		return 0, nil, err
	}
	closeMin, err := ParseClock(close)
	if err != nil {
		return 0, nil, err
	}
	if closeMin <= openMin {
		return 0, nil, fmt.Errorf("close time %s must be after open time %s", close, open)
	}
	if loadsTarget < 1 {
		return 0, nil, fmt.Errorf("loads target must be at least 1, got %d", loadsTarget)
	}
	interval := requestedInterval
	if interval <= 0 {
		denom := loadsTarget - 1
		if denom < 1 {
			denom = 1
		}
		interval = (closeMin - openMin) / denom
	}
	if siteMinInterval > interval {
		interval = siteMinInterval
	}
	if interval < 1 {
		interval = 1
	}
	times := make([]string, 0, loadsTarget)
	for i := 0; i < loadsTarget; i++ {
		t := openMin + i*interval
		if t > closeMin {
			break
		}
		times = append(times, FormatClock(t))
	}
	return interval, times, nil
}

// Span generates a dense run of times across [start, end] inclusive at
// a fixed step.  It is the add-times mode used to widen a day's
// coverage without disturbing already published rows; the count is
// driven by the window, not by a loads target.
func Span(start, end string, step int) ([]string, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return nil, err
	}
	if endMin < startMin {
		return nil, fmt.Errorf("end time %s must not be before start time %s", end, start)
	}
	if step < 1 {
		return nil, fmt.Errorf("step must be at least 1 minute, got %d", step)
	}
	times := make([]string, 0, (endMin-startMin)/step+1)
	for t := startMin; t <= endMin; t += step {
		times = append(times, FormatClock(t))
	}
	return times, nil
}

// DisabledPositions distributes want disabled markers as evenly as
// possible across count generated times.  The stride is round(count/want)
// and every stride-th position is marked; when rounding leaves fewer
// than want marks, the remainder is back-filled from the end of the
// list.  This is a capacity control, so want larger than count simply
// marks everything.
func DisabledPositions(count, want int) map[int]bool {
	marked := make(map[int]bool, want)
	if count < 1 || want < 1 {
		return marked
	}
	if want > count {
		want = count
	}
	stride := int(math.Round(float64(count) / float64(want)))
	if stride < 1 {
		stride = 1
	}
	for i := stride - 1; i < count && len(marked) < want; i += stride {
		marked[i] = true
	}
	for i := count - 1; i >= 0 && len(marked) < want; i-- {
		marked[i] = true
	}
	return marked
}
