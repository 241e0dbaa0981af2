package models

// ThirdPlaceRound marks the synthesized third-place match. It lives outside
// the bracket rounds and never links forward.
const ThirdPlaceRound = -1

// Match is one node of the elimination tree. A nil slot is an unfilled
// position (bye or not-yet-advanced). Winner is set at most once and must
// equal one of the two slot participants.
type Match struct {
	ID           string       `json:"id"`
	Round        int          `json:"round"`
	Index        int          `json:"index"`
	Participant1 *Participant `json:"participant1,omitempty"`
	Participant2 *Participant `json:"participant2,omitempty"`
	Winner       *Participant `json:"winner,omitempty"`
	NextMatchID  *string      `json:"next_match_id,omitempty"`
}

// Slot returns the slot participant with the given id, or nil if neither
// slot holds it.
func (m *Match) Slot(participantID string) *Participant {
	if m.Participant1 != nil && m.Participant1.ID == participantID {
		return m.Participant1
	}
	if m.Participant2 != nil && m.Participant2.ID == participantID {
		return m.Participant2
	}
	return nil
}

// Loser returns the non-winner slot participant. It is nil while the match
// is unresolved and nil for a bye (the losing slot was empty).
func (m *Match) Loser() *Participant {
	if m.Winner == nil {
		return nil
	}
	if m.Participant1 != nil && m.Participant1.ID != m.Winner.ID {
		return m.Participant1
	}
	if m.Participant2 != nil && m.Participant2.ID != m.Winner.ID {
		return m.Participant2
	}
	return nil
}

// Bracket is the ordered sequence of rounds. Round 0 holds size/2 matches,
// every following round half as many, down to the single final.
type Bracket struct {
	Rounds [][]*Match `json:"rounds"`
}

// Size returns the bracket capacity (always a power of two >= 2).
func (b *Bracket) Size() int {
	if b == nil || len(b.Rounds) == 0 {
		return 0
	}
	return len(b.Rounds[0]) * 2
}

// Final returns the sole match of the last round.
func (b *Bracket) Final() *Match {
	if b == nil || len(b.Rounds) == 0 {
		return nil
	}
	last := b.Rounds[len(b.Rounds)-1]
	if len(last) == 0 {
		return nil
	}
	return last[0]
}

// FindMatch locates a match by id across all rounds. Returns nil when the
// id is unknown.
func (b *Bracket) FindMatch(id string) *Match {
	if b == nil {
		return nil
	}
	for _, round := range b.Rounds {
		for _, match := range round {
			if match.ID == id {
				return match
			}
		}
	}
	return nil
}
