package game

import "time"

// Stats are the poker statistics derived from a player's hand history.
// They are recomputed from the action log, never updated incrementally.
type Stats struct {
	VPIP               float64 `json:"vpip"`
	PFR                float64 `json:"pfr"`
	AggressionFactor   float64 `json:"aggressionFactor"`
	FoldPercentage     float64 `json:"foldPercentage"`
	CBetPercentage     float64 `json:"cbetPercentage"`
	ShowdownPercentage float64 `json:"showdownPercentage"`
	TotalHands         int     `json:"totalHands"`
}

// Style is one of the four play-style quadrants
type Style string

const (
	LooseAggressive Style = "loose-aggressive"
	TightAggressive Style = "tight-aggressive"
	LoosePassive    Style = "loose-passive"
	TightPassive    Style = "tight-passive"
)

// Styles lists every style.
var Styles = []Style{LooseAggressive, TightAggressive, LoosePassive, TightPassive}

// Axis is one scored dimension of a diagnosis.
type Axis struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Score       int    `json:"score"`
	Description string `json:"description"`
}

// DiagnosisResult is the per-player outcome of a diagnosis run.
type DiagnosisResult struct {
	PlayerID                string    `json:"playerId"`
	PlayerName              string    `json:"playerName"`
	PokerStyle              Style     `json:"pokerStyle"`
	BusinessType            string    `json:"businessType"`
	BusinessTypeDescription string    `json:"businessTypeDescription"`
	Axes                    []Axis    `json:"axes"`
	Stats                   Stats     `json:"stats"`
	Advice                  string    `json:"advice"`
	Strengths               []string  `json:"strengths"`
	Weaknesses              []string  `json:"weaknesses"`
	CreatedAt               time.Time `json:"createdAt"`
}
