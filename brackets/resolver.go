package brackets

import (
	"errors"
	"sort"

	"github.com/bekarys-dev/championship-system/models"
	"github.com/google/uuid"
)

// ErrInvalidWinner is returned when the requested winner is not one of the
// match's slot participants.
var ErrInvalidWinner = errors.New("winner is not a participant of this match")

// Outcome reports what a winner assignment changed. A zero Outcome with a
// nil error means the call was an ignored no-op (unknown match id or the
// match was already resolved).
type Outcome struct {
	Changed           bool
	ThirdPlaceCreated bool
	Finished          bool
}

// SetWinner resolves a match in favor of the given participant and advances
// them into the linked next match. Winners are immutable once assigned, so
// a repeated call on the same match changes nothing. After any assignment
// the second-to-last round is checked to synthesize the third-place match,
// and the tournament-completion condition is evaluated.
func SetWinner(s *models.Session, matchID, winnerID string) (Outcome, error) {
	var out Outcome
	if s.Bracket == nil {
		return out, nil
	}

	if tp := s.ThirdPlace; tp != nil && tp.ID == matchID {
		if tp.Winner != nil {
			return out, nil
		}
		winner := tp.Slot(winnerID)
		if winner == nil {
			return out, ErrInvalidWinner
		}
		tp.Winner = winner
		out.Changed = true
		out.Finished = finished(s)
		return out, nil
	}

	match := s.Bracket.FindMatch(matchID)
	if match == nil {
		return out, nil
	}
	if match.Winner != nil {
		return out, nil
	}

	winner := match.Slot(winnerID)
	if winner == nil {
		return out, ErrInvalidWinner
	}
	match.Winner = winner
	out.Changed = true

	if match.NextMatchID != nil {
		if next := s.Bracket.FindMatch(*match.NextMatchID); next != nil {
			// The first match of a feeding pair fills slot 1, the second
			// fills slot 2; then the better seed is moved back into slot 1.
			if match.Index%2 == 0 {
				next.Participant1 = winner
			} else {
				next.Participant2 = winner
			}
			orderSlots(next)
		}
	}

	out.ThirdPlaceCreated = synthesizeThirdPlace(s)
	out.Finished = finished(s)
	return out, nil
}

// synthesizeThirdPlace creates the third-place match once both semifinals
// are resolved. With two real losers they meet, better seed in slot 1. With
// a single real loser (the other semifinal slot was a bye) the match is
// created pre-resolved: a placement record with no game to play. With no
// losers nothing is created. A bracket with a single round has no semifinal
// distinct from the final, so nothing happens there either.
func synthesizeThirdPlace(s *models.Session) bool {
	if s.ThirdPlace != nil || s.Bracket == nil || len(s.Bracket.Rounds) < 2 {
		return false
	}

	semis := s.Bracket.Rounds[len(s.Bracket.Rounds)-2]
	losers := make([]*models.Participant, 0, len(semis))
	for _, m := range semis {
		if m.Winner == nil {
			return false
		}
		if loser := m.Loser(); loser != nil {
			losers = append(losers, loser)
		}
	}

	switch len(losers) {
	case 2:
		sort.SliceStable(losers, func(i, j int) bool {
			return losers[i].Seed < losers[j].Seed
		})
		s.ThirdPlace = &models.Match{
			ID:           uuid.NewString(),
			Round:        models.ThirdPlaceRound,
			Index:        0,
			Participant1: losers[0],
			Participant2: losers[1],
		}
	case 1:
		s.ThirdPlace = &models.Match{
			ID:           uuid.NewString(),
			Round:        models.ThirdPlaceRound,
			Index:        0,
			Participant1: losers[0],
			Winner:       losers[0],
		}
	default:
		return false
	}
	return true
}

// finished reports the tournament-completion condition: the final has a
// winner and the third-place match, if it exists, has one too.
func finished(s *models.Session) bool {
	final := s.Bracket.Final()
	if final == nil || final.Winner == nil {
		return false
	}
	return s.ThirdPlace == nil || s.ThirdPlace.Winner != nil
}
