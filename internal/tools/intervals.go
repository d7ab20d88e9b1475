package tools

import "time"

type Window struct {
	From time.Time
	To   time.Time
}

// SplitWindow cuts [from, to) into consecutive half-open chunks no longer than step.
func SplitWindow(from, to time.Time, step time.Duration) []Window {
	if !from.Before(to) {
		return nil
	}
	if step <= 0 {
		return []Window{{From: from, To: to}}
	}

	windows := make([]Window, 0, int(to.Sub(from)/step)+1)
	for current := from; current.Before(to); current = current.Add(step) {
		end := current.Add(step)
		if end.After(to) {
			end = to
		}
		windows = append(windows, Window{From: current, To: end})
	}

	return windows
}

// TrailingWindow returns [now-d, now).
func TrailingWindow(now time.Time, d time.Duration) Window {
	return Window{From: now.Add(-d), To: now}
}
