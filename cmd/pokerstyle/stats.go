package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/pokerstyle/internal/diagnosis"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/statistics"
)

// StatsCmd prints the statistics and style of every player in a session
type StatsCmd struct {
	RemoteFlags
	Session string `arg:"" help:"Session ID"`
	JSON    bool   `help:"Print JSON instead of a table"`
}

type playerStats struct {
	Player string     `json:"player"`
	Seat   int        `json:"seat"`
	Style  game.Style `json:"style"`
	game.Stats
}

func (c *StatsCmd) Run(g *Globals) error {
	api, logger, err := c.dial(g)
	if err != nil {
		return err
	}
	ctx, cancel := c.signalContext(logger)
	defer cancel()

	s, err := api.GetSession(ctx, c.Session)
	if err != nil {
		return err
	}

	rows := sessionStats(s)
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SEAT", "PLAYER", "HANDS", "VPIP", "PFR", "AF", "FOLD", "C-BET", "SHOWDOWN", "STYLE")
	for _, r := range rows {
		t.Row(fmt.Sprint(r.Seat), r.Player, fmt.Sprint(r.TotalHands),
			pct(r.VPIP), pct(r.PFR), fmt.Sprintf("%.2f", r.AggressionFactor),
			pct(r.FoldPercentage), pct(r.CBetPercentage), pct(r.ShowdownPercentage),
			string(r.Style))
	}
	fmt.Printf("Session %s: %d completed hands\n", s.Code, s.CompletedHandCount())
	fmt.Println(t.Render())
	return nil
}

// sessionStats computes every player's stats over the completed hands,
// ordered by seat.
func sessionStats(s *game.Session) []playerStats {
	all := statistics.ComputeAll(s.Players, s.CompletedHands())
	rows := make([]playerStats, 0, len(s.Players))
	for _, p := range s.Players {
		st := all[p.ID]
		rows = append(rows, playerStats{
			Player: p.Name,
			Seat:   p.SeatNumber,
			Style:  diagnosis.Classify(st),
			Stats:  st,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seat < rows[j].Seat })
	return rows
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}
