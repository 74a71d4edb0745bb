package model

// EditedWord is one transcript word as returned by the transcript editor.
// Words arrive sorted by Start; the order is not re-validated.
type EditedWord struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Deleted bool    `json:"deleted"`
}

// Segment is a contiguous time range of source media to keep, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}
