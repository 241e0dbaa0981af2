package models

// Participant is a single entrant of the active competition.
// Score is nil until the admin records a qualification result.
// Seed is assigned once at bracket-build time; 0 means unseeded.
type Participant struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Score *float64 `json:"score,omitempty"`
	Seed  int      `json:"seed"`
}

// Qualified reports whether the participant is eligible for bracket play.
// A zero or missing score means "did not qualify", not an error.
func (p *Participant) Qualified() bool {
	return p != nil && p.Score != nil && *p.Score > 0
}
