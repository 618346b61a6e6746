package domain

import "time"

// DetentionFrom derives the date detention charges begin for a container:
// arrival date plus the shipment's contractual free time, in calendar days.
// A nil arrival clears any previously derived value.
func DetentionFrom(arrival *time.Time, freeTimeDays int) *time.Time {
	if arrival == nil {
		return nil
	}
	if freeTimeDays < 0 {
		freeTimeDays = 0
	}
	d := arrival.AddDate(0, 0, freeTimeDays)
	return &d
}

// ApplyDetention recomputes detention_from for every container in place and
// reports whether any value changed. Called with the shipment-level free time
// after an arrival edit (single container) or a free-time edit (fan-out).
func ApplyDetention(containers []Container, freeTimeDays int) bool {
	changed := false
	for i := range containers {
		next := DetentionFrom(containers[i].ArrivalDate, freeTimeDays)
		if !timeEqual(containers[i].DetentionFrom, next) {
			containers[i].DetentionFrom = next
			changed = true
		}
	}
	return changed
}
