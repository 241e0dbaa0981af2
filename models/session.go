package models

import (
	"fmt"
	"time"
)

type Phase string

const (
	PhaseChampionshipView Phase = "CHAMPIONSHIP_VIEW"
	PhaseQualification    Phase = "QUALIFICATION"
	PhaseBracket          Phase = "BRACKET"
	PhaseFinished         Phase = "FINISHED"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseChampionshipView, PhaseQualification, PhaseBracket, PhaseFinished:
		return true
	}
	return false
}

// Session is the full state of one season. Every operation takes the
// session explicitly; there is no ambient mutable state in the core.
type Session struct {
	ID               string         `json:"id"`
	Phase            Phase          `json:"phase"`
	Standings        []*Standing    `json:"standings"`
	CompetitionsHeld int            `json:"competitions_held"`
	Qualification    []*Participant `json:"qualification,omitempty"`
	Bracket          *Bracket       `json:"bracket,omitempty"`
	ThirdPlace       *Match         `json:"third_place,omitempty"`
	// PendingRegistrations are self-registrations received while a
	// competition is running; they are merged into the standings on the
	// next return to the championship view.
	PendingRegistrations []*Standing `json:"pending_registrations,omitempty"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// Validate checks the invariants that matter at the serialization boundary.
// It is called when a session is loaded from the store, not inside the core.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is empty")
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if s.CompetitionsHeld < 0 {
		return fmt.Errorf("negative competitions_held %d", s.CompetitionsHeld)
	}
	for _, st := range s.Standings {
		if st.ParticipantID == "" {
			return fmt.Errorf("standing for %q has empty participant id", st.Name)
		}
		if len(st.Points) > s.CompetitionsHeld {
			return fmt.Errorf("standing %q has %d point entries for %d competitions",
				st.Name, len(st.Points), s.CompetitionsHeld)
		}
	}
	if s.ThirdPlace != nil && s.ThirdPlace.Round != ThirdPlaceRound {
		return fmt.Errorf("third place match has round %d", s.ThirdPlace.Round)
	}
	return nil
}
