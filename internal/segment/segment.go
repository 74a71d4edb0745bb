// Package segment turns a word-level keep/delete edit list into the time
// ranges that survive an export.
package segment

import "github.com/seantiz/podfree/internal/model"

// Build folds words left to right and returns one segment per maximal run of
// consecutive kept words. Each segment starts at the run's first word and ends
// at its last word's end. Input order is trusted; nothing is sorted.
func Build(words []model.EditedWord) []model.Segment {
	segments := make([]model.Segment, 0)
	var open *model.Segment

	for _, w := range words {
		if w.Deleted {
			if open != nil {
				segments = append(segments, *open)
				open = nil
			}
			continue
		}
		if open == nil {
			open = &model.Segment{Start: w.Start, End: w.End}
			continue
		}
		open.End = w.End
	}
	if open != nil {
		segments = append(segments, *open)
	}
	return segments
}

// Stats counts kept and deleted words.
func Stats(words []model.EditedWord) (kept, deleted int) {
	for _, w := range words {
		if w.Deleted {
			deleted++
		} else {
			kept++
		}
	}
	return kept, deleted
}

// TotalDuration sums segment lengths in seconds.
func TotalDuration(segments []model.Segment) float64 {
	var total float64
	for _, s := range segments {
		total += s.Duration()
	}
	return total
}
