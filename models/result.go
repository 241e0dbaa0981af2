package models

// CompetitionResult is the per-competition points breakdown produced when a
// tournament completes. Awards maps participant id to the points appended
// to that participant's standing for this competition.
type CompetitionResult struct {
	Competition int                `json:"competition"`
	ChampionID  string             `json:"champion_id"`
	RunnerUpID  string             `json:"runner_up_id,omitempty"`
	ThirdID     string             `json:"third_id,omitempty"`
	FourthID    string             `json:"fourth_id,omitempty"`
	Awards      map[string]float64 `json:"awards"`
}
