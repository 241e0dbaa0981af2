package brackets

import (
	"fmt"
	"testing"

	"github.com/bekarys-dev/championship-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id string, score float64) *models.Participant {
	return &models.Participant{ID: id, Name: id, Score: &score}
}

func unscored(id string) *models.Participant {
	return &models.Participant{ID: id, Name: id}
}

func sessionWithQualification(participants ...*models.Participant) *models.Session {
	return &models.Session{
		ID:            "season-1",
		Phase:         models.PhaseQualification,
		Qualification: participants,
	}
}

func TestQualifiersFiltersAndRanks(t *testing.T) {
	ranked := Qualifiers([]*models.Participant{
		scored("low", 10),
		unscored("no-score"),
		scored("zero", 0),
		scored("high", 50),
		scored("mid", 30),
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].ID)
	assert.Equal(t, "mid", ranked[1].ID)
	assert.Equal(t, "low", ranked[2].ID)
}

func TestQualifiersStableOnEqualScores(t *testing.T) {
	ranked := Qualifiers([]*models.Participant{
		scored("first", 20),
		scored("second", 20),
		scored("third", 20),
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "first", ranked[0].ID)
	assert.Equal(t, "second", ranked[1].ID)
	assert.Equal(t, "third", ranked[2].ID)
}

func TestBuildRequiresTwoQualifiers(t *testing.T) {
	testCases := []struct {
		name         string
		participants []*models.Participant
	}{
		{"empty", nil},
		{"one qualifier", []*models.Participant{scored("a", 10)}},
		{"zero scores only", []*models.Participant{scored("a", 0), scored("b", 0)}},
		{"one qualifier among unscored", []*models.Participant{scored("a", 10), unscored("b"), scored("c", 0)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := sessionWithQualification(tc.participants...)
			err := Build(s)
			require.ErrorIs(t, err, ErrInsufficientQualifiers)
			assert.Nil(t, s.Bracket)
		})
	}
}

func TestBuildTwoQualifiersAmongThree(t *testing.T) {
	// Участник с нулевым баллом не проходит в сетку.
	s := sessionWithQualification(scored("a", 50), scored("b", 30), scored("c", 0))
	require.NoError(t, Build(s))

	require.NotNil(t, s.Bracket)
	require.Len(t, s.Bracket.Rounds, 1)
	require.Len(t, s.Bracket.Rounds[0], 1)

	final := s.Bracket.Final()
	require.NotNil(t, final.Participant1)
	require.NotNil(t, final.Participant2)
	assert.Equal(t, "a", final.Participant1.ID)
	assert.Equal(t, "b", final.Participant2.ID)
	assert.Equal(t, 1, final.Participant1.Seed)
	assert.Equal(t, 2, final.Participant2.Seed)
	assert.Nil(t, final.Winner)
	assert.Nil(t, final.NextMatchID)
}

func TestBuildFiveQualifiersByesPreResolved(t *testing.T) {
	s := sessionWithQualification(
		scored("s1", 50),
		scored("s2", 40),
		scored("s3", 30),
		scored("s4", 20),
		scored("s5", 10),
	)
	require.NoError(t, Build(s))

	b := s.Bracket
	require.NotNil(t, b)
	assert.Equal(t, 8, b.Size())
	require.Len(t, b.Rounds, 3)
	require.Len(t, b.Rounds[0], 4)
	require.Len(t, b.Rounds[1], 2)
	require.Len(t, b.Rounds[2], 1)

	// Seeding order 1,8,4,5,2,7,3,6 with 5 qualifiers leaves seeds 6-8
	// empty: matches 0 and 2 are byes, match 1 is seed 4 vs seed 5.
	first := b.Rounds[0]

	require.NotNil(t, first[0].Participant1)
	assert.Equal(t, 1, first[0].Participant1.Seed)
	assert.Nil(t, first[0].Participant2)
	require.NotNil(t, first[0].Winner, "bye must be pre-resolved")
	assert.Equal(t, "s1", first[0].Winner.ID)

	require.NotNil(t, first[1].Participant1)
	require.NotNil(t, first[1].Participant2)
	assert.Equal(t, 4, first[1].Participant1.Seed)
	assert.Equal(t, 5, first[1].Participant2.Seed)
	assert.Nil(t, first[1].Winner)

	require.NotNil(t, first[2].Winner)
	assert.Equal(t, "s2", first[2].Winner.ID)
	require.NotNil(t, first[3].Winner)
	assert.Equal(t, "s3", first[3].Winner.ID)

	// Bye winners are already carried into the semifinals.
	assert.Equal(t, "s1", first[0].Winner.ID)
	require.NotNil(t, b.Rounds[1][0].Participant1)
	assert.Equal(t, "s1", b.Rounds[1][0].Participant1.ID)
	require.NotNil(t, b.Rounds[1][1].Participant1)
	assert.Equal(t, "s2", b.Rounds[1][1].Participant1.ID)
	require.NotNil(t, b.Rounds[1][1].Participant2)
	assert.Equal(t, "s3", b.Rounds[1][1].Participant2.ID)
}

func TestBuildLinksEveryMatchForward(t *testing.T) {
	s := sessionWithQualification(
		scored("a", 80), scored("b", 70), scored("c", 60), scored("d", 50),
		scored("e", 40), scored("f", 30), scored("g", 20), scored("h", 10),
	)
	require.NoError(t, Build(s))

	b := s.Bracket
	for r, round := range b.Rounds {
		for i, m := range round {
			if r == len(b.Rounds)-1 {
				assert.Nil(t, m.NextMatchID, "final must not link forward")
				continue
			}
			require.NotNil(t, m.NextMatchID, "round %d match %d", r, i)
			assert.Equal(t, b.Rounds[r+1][i/2].ID, *m.NextMatchID)
		}
	}
}

func TestBuildReplacesPreviousBracket(t *testing.T) {
	s := sessionWithQualification(scored("a", 50), scored("b", 30))
	require.NoError(t, Build(s))
	old := s.Bracket
	s.ThirdPlace = &models.Match{ID: "stale", Round: models.ThirdPlaceRound}

	require.NoError(t, Build(s))
	assert.NotSame(t, old, s.Bracket)
	assert.Nil(t, s.ThirdPlace)
}

func TestBuildEveryQualifierAppearsOnce(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8, 13, 16} {
		t.Run(fmt.Sprintf("%d qualifiers", n), func(t *testing.T) {
			participants := make([]*models.Participant, 0, n)
			for i := 0; i < n; i++ {
				participants = append(participants, scored(fmt.Sprintf("p%d", i), float64(100-i)))
			}
			s := sessionWithQualification(participants...)
			require.NoError(t, Build(s))

			seen := make(map[string]int)
			for _, m := range s.Bracket.Rounds[0] {
				if m.Participant1 != nil {
					seen[m.Participant1.ID]++
				}
				if m.Participant2 != nil {
					seen[m.Participant2.ID]++
				}
			}
			require.Len(t, seen, n)
			for id, count := range seen {
				assert.Equal(t, 1, count, "participant %s", id)
			}
		})
	}
}
