// Package streak derives the consecutive-day counter from completion
// timestamps. It is a pure function of the full record set and is recomputed
// after every mutation, so editing or deleting an old completion can never
// leave a stale count behind.
package streak

import "time"

const dayFormat = "2006-01-02"

// Calculate counts consecutive calendar days with at least one completion,
// ending today or yesterday. Days are taken in now's location: "today" has to
// match the user's wall clock, not UTC. A completion-free today does not yet
// break a streak that ran through yesterday.
func Calculate(completions []time.Time, now time.Time) int {
	if len(completions) == 0 {
		return 0
	}

	loc := now.Location()
	days := make(map[string]struct{}, len(completions))
	for _, t := range completions {
		days[t.In(loc).Format(dayFormat)] = struct{}{}
	}

	cursor := now
	if _, ok := days[cursor.Format(dayFormat)]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
		if _, ok := days[cursor.Format(dayFormat)]; !ok {
			return 0
		}
	}

	count := 0
	for {
		if _, ok := days[cursor.Format(dayFormat)]; !ok {
			break
		}
		count++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return count
}
