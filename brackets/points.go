package brackets

import (
	"errors"
	"sort"

	"github.com/bekarys-dev/championship-system/models"
)

// ErrTournamentNotFinished guards the points allocation against being run
// before the completion condition holds.
var ErrTournamentNotFinished = errors.New("tournament is not finished")

// Placement points for the bracket podium.
const (
	championPoints    = 100
	runnerUpPoints    = 88
	thirdPlacePoints  = 76
	fourthPlacePoints = 64
)

// roundBonus awards every loser of a round by the round's participant count
// (matches * 2). Top-4 finishers are excluded so nobody is paid twice.
var roundBonus = map[int]float64{
	8:  48,
	16: 32,
	32: 16,
	64: 10,
}

// QualificationPoints is the fixed lookup keyed by qualification rank
// (1 = best). The boundaries are exact; there is no formula behind them.
func QualificationPoints(rank int) float64 {
	switch {
	case rank <= 0:
		return 0
	case rank == 1:
		return 12
	case rank == 2:
		return 10
	case rank == 3:
		return 8
	case rank == 4:
		return 6
	case rank <= 6:
		return 4
	case rank <= 8:
		return 3
	case rank <= 12:
		return 2
	case rank <= 16:
		return 1
	case rank <= 24:
		return 0.5
	case rank <= 32:
		return 0.25
	default:
		return 0
	}
}

// AllocatePoints folds the finished competition into the season standings:
// qualification points by rank, placement points for the top four,
// round-elimination bonuses for everyone else, exactly one appended entry
// per standing (zero for non-participants), then a stable re-sort by
// descending season total and a competitions-held increment.
func AllocatePoints(s *models.Session) (*models.CompetitionResult, error) {
	if s.Bracket == nil || !finished(s) {
		return nil, ErrTournamentNotFinished
	}

	awards := make(map[string]float64)

	ranked := Qualifiers(s.Qualification)
	for i, p := range ranked {
		awards[p.ID] += QualificationPoints(i + 1)
	}

	final := s.Bracket.Final()
	champion := final.Winner
	runnerUp := final.Loser()

	var third, fourth *models.Participant
	if s.ThirdPlace != nil {
		third = s.ThirdPlace.Winner
		fourth = s.ThirdPlace.Loser()
	}

	topFour := make(map[string]bool, 4)
	for _, p := range []*models.Participant{champion, runnerUp, third, fourth} {
		if p != nil {
			topFour[p.ID] = true
		}
	}

	awards[champion.ID] += championPoints
	if runnerUp != nil {
		awards[runnerUp.ID] += runnerUpPoints
	}
	if third != nil {
		awards[third.ID] += thirdPlacePoints
	}
	if fourth != nil {
		awards[fourth.ID] += fourthPlacePoints
	}

	for _, round := range s.Bracket.Rounds {
		bonus, ok := roundBonus[len(round)*2]
		if !ok {
			continue
		}
		for _, match := range round {
			loser := match.Loser()
			if loser == nil || topFour[loser.ID] {
				continue
			}
			awards[loser.ID] += bonus
		}
	}

	for _, standing := range s.Standings {
		standing.Pad(s.CompetitionsHeld)
		standing.Points = append(standing.Points, awards[standing.ParticipantID])
	}
	sort.SliceStable(s.Standings, func(i, j int) bool {
		return s.Standings[i].Total() > s.Standings[j].Total()
	})
	s.CompetitionsHeld++

	result := &models.CompetitionResult{
		Competition: s.CompetitionsHeld,
		ChampionID:  champion.ID,
		Awards:      awards,
	}
	if runnerUp != nil {
		result.RunnerUpID = runnerUp.ID
	}
	if third != nil {
		result.ThirdID = third.ID
	}
	if fourth != nil {
		result.FourthID = fourth.ID
	}
	return result, nil
}
