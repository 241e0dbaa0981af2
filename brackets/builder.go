package brackets

import (
	"errors"
	"sort"

	"github.com/bekarys-dev/championship-system/models"
	"github.com/google/uuid"
)

// ErrInsufficientQualifiers is returned when fewer than two participants
// carry a positive qualification score.
var ErrInsufficientQualifiers = errors.New("not enough qualifiers to generate a bracket (minimum 2 with score > 0)")

// Generator builds an elimination structure from ranked qualifiers.
type Generator interface {
	Generate(qualifiers []*models.Participant) (*models.Bracket, error)
	Name() string
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Qualifiers filters participants down to those with a positive score and
// orders them by score descending. The sort is stable: equal scores keep
// their input order. Seeds are not assigned here.
func Qualifiers(participants []*models.Participant) []*models.Participant {
	qualified := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Qualified() {
			qualified = append(qualified, p)
		}
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return *qualified[i].Score > *qualified[j].Score
	})
	return qualified
}

// Build ranks the session's qualification field, assigns seeds and installs
// a fresh bracket on the session. Any previous bracket and third-place
// match are discarded. The session is left untouched on error.
func Build(s *models.Session) error {
	ranked := Qualifiers(s.Qualification)
	if len(ranked) < 2 {
		return ErrInsufficientQualifiers
	}
	for i, p := range ranked {
		p.Seed = i + 1
	}

	bracket, err := NewSingleEliminationGenerator().Generate(ranked)
	if err != nil {
		return err
	}

	s.Bracket = bracket
	s.ThirdPlace = nil
	return nil
}

// Generate lays out the full bracket for the given ranked qualifiers
// (index 0 = seed 1). Slots whose seed exceeds the qualifier count are
// byes: the opposing participant is assigned as the round-0 winner
// immediately, the match still exists in the structure.
func (g *SingleEliminationGenerator) Generate(qualifiers []*models.Participant) (*models.Bracket, error) {
	n := len(qualifiers)
	if n < 2 {
		return nil, ErrInsufficientQualifiers
	}

	size := BracketSize(n)
	order := SeedingOrder(size)

	slots := make([]*models.Participant, size)
	for i, seed := range order {
		if seed <= n {
			slots[i] = qualifiers[seed-1]
		}
	}

	numRounds := 0
	for 1<<numRounds < size {
		numRounds++
	}

	rounds := make([][]*models.Match, numRounds)

	// Round 0: pair consecutive slots of the seeding order. The seeding
	// order guarantees slot 1 of every pair holds a real participant, so a
	// bye always resolves in favor of participant 1.
	first := make([]*models.Match, 0, size/2)
	for i := 0; i < size; i += 2 {
		m := &models.Match{
			ID:           uuid.NewString(),
			Round:        0,
			Index:        i / 2,
			Participant1: slots[i],
			Participant2: slots[i+1],
		}
		if m.Participant1 != nil && m.Participant2 == nil {
			m.Winner = m.Participant1
		}
		first = append(first, m)
	}
	rounds[0] = first

	for r := 1; r < numRounds; r++ {
		count := len(rounds[r-1]) / 2
		round := make([]*models.Match, 0, count)
		for i := 0; i < count; i++ {
			m := &models.Match{
				ID:    uuid.NewString(),
				Round: r,
				Index: i,
			}
			// Carry forward winners that already exist (round-0 byes).
			if w := rounds[r-1][2*i].Winner; w != nil {
				m.Participant1 = w
			}
			if w := rounds[r-1][2*i+1].Winner; w != nil {
				m.Participant2 = w
			}
			orderSlots(m)
			round = append(round, m)
		}
		for i, prev := range rounds[r-1] {
			id := round[i/2].ID
			prev.NextMatchID = &id
		}
		rounds[r] = round
	}

	return &models.Bracket{Rounds: rounds}, nil
}

// orderSlots keeps the better seed in slot 1 once both slots are filled.
// A display convention only; it grants no competitive advantage.
func orderSlots(m *models.Match) {
	if m.Participant1 == nil || m.Participant2 == nil {
		return
	}
	if m.Participant1.Seed > m.Participant2.Seed {
		m.Participant1, m.Participant2 = m.Participant2, m.Participant1
	}
}
