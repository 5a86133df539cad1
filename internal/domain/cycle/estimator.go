package cycle

import "math"

// maxLengthObservations caps how many observed cycle lengths feed the
// adaptive estimate.
const maxLengthObservations = 3

// LengthObservation is the start of one recorded cycle plus, when the cycle
// was reported to have closed early, its actual end date.
type LengthObservation struct {
	Start     Date
	ActualEnd Date
}

// EstimateLength derives the effective cycle length from recent history,
// ordered newest first. Each adjacent pair yields one observation attributed
// to the older record: its reported actual length when an end date was set,
// otherwise the gap to the newer record's start. The rounded average of up to
// three observations is clamped to the valid domain; with no usable
// observation the clamped fallback is returned.
func EstimateLength(observations []LengthObservation, fallback int) int {
	lengths := make([]int, 0, maxLengthObservations)
	for i := 1; i < len(observations) && len(lengths) < maxLengthObservations; i++ {
		older, newer := observations[i], observations[i-1]
		var length int
		if !older.ActualEnd.IsZero() {
			length = older.Start.DaysUntil(older.ActualEnd) + 1
		} else {
			length = older.Start.DaysUntil(newer.Start)
		}
		if length >= 1 {
			lengths = append(lengths, length)
		}
	}
	if len(lengths) == 0 {
		return ClampLength(fallback)
	}
	sum := 0
	for _, l := range lengths {
		sum += l
	}
	return ClampLength(int(math.Round(float64(sum) / float64(len(lengths)))))
}

// ClampLength bounds a cycle length to the valid [21, 35] domain.
func ClampLength(length int) int {
	if length < MinCycleLength {
		return MinCycleLength
	}
	if length > MaxCycleLength {
		return MaxCycleLength
	}
	return length
}
