package models

// Standing is a participant's cumulative season record. Points holds one
// entry per completed competition, in calendar order; it is only appended
// to, never truncated, except by an explicit season reset.
type Standing struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Points        []float64 `json:"points"`
}

// Total is the sum of all per-competition entries.
func (s *Standing) Total() float64 {
	var sum float64
	for _, p := range s.Points {
		sum += p
	}
	return sum
}

// Pad extends Points with zeroes up to n entries. Used for participants who
// join mid-season so that every standing stays in sync with the number of
// competitions held.
func (s *Standing) Pad(n int) {
	for len(s.Points) < n {
		s.Points = append(s.Points, 0)
	}
}
