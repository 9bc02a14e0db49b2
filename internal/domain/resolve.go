package domain

import (
	"fmt"
	"time"
)

// NearestWarnThreshold is the largest time gap between the target and the
// chosen scan that is considered routine. Archive cadence is 5-10 minutes,
// so a gap beyond 15 minutes indicates genuinely missing data worth flagging
// to the operator — but never worth aborting the run over.
const NearestWarnThreshold = 15 * time.Minute

// Resolution is the outcome of a nearest-timestamp lookup. Delta is signed:
// entry scan time minus target, negative when the chosen scan precedes the
// target.
type Resolution struct {
	Entry ArchiveEntry
	Delta time.Duration
}

// Distant reports whether the chosen scan is far enough from the target to
// merit an advisory warning.
func (r Resolution) Distant() bool {
	d := r.Delta
	if d < 0 {
		d = -d
	}
	return d > NearestWarnThreshold
}

// ResolveNearest picks the catalog entry whose scan time is closest to
// target. The catalog is scanned in listing order; the scan stops at the
// first entry strictly after the target (the future bound), and the
// timestamped entry just before it is the past bound — stepping over one
// sidecar if the immediately preceding position holds one. Ties break toward
// the future entry. If the very first candidate is already past the target
// there is no past bound and the first candidate wins; if no candidate
// exceeds the target the last one wins. Skip and Unknown entries are never
// returned.
func ResolveNearest(c *Catalog, target time.Time) (Resolution, error) {
	entries := c.Entries()

	firstIdx, futureIdx, lastPastIdx := -1, -1, -1
	for i, e := range entries {
		if !e.HasTimestamp() {
			continue
		}
		if firstIdx == -1 {
			firstIdx = i
		}
		if e.Timestamp.After(target) {
			futureIdx = i
			break
		}
		lastPastIdx = i
	}

	if firstIdx == -1 {
		return Resolution{}, fmt.Errorf("%w: nothing to resolve %s against", ErrEmptyCatalog, target.Format(time.RFC3339))
	}

	// Every candidate is in the past: the last one is nearest.
	if futureIdx == -1 {
		e := entries[lastPastIdx]
		return Resolution{Entry: e, Delta: e.Timestamp.Sub(target)}, nil
	}

	// The first candidate already exceeds the target: no past bound exists.
	if futureIdx == firstIdx {
		e := entries[futureIdx]
		return Resolution{Entry: e, Delta: e.Timestamp.Sub(target)}, nil
	}

	// Step back from the future bound to the past candidate, hopping over a
	// sidecar sitting at the immediately preceding position.
	p := futureIdx - 1
	if entries[p].Kind == KindSkip {
		p--
	}
	for p >= 0 && !entries[p].HasTimestamp() {
		p--
	}

	future := entries[futureIdx]
	past := entries[p]
	pastDelta := target.Sub(past.Timestamp)
	futureDelta := future.Timestamp.Sub(target)

	chosen := past
	if pastDelta >= futureDelta {
		chosen = future
	}
	return Resolution{Entry: chosen, Delta: chosen.Timestamp.Sub(target)}, nil
}
