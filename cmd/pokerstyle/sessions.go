package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// SessionsCmd lists sessions, newest first
type SessionsCmd struct {
	RemoteFlags
}

func (c *SessionsCmd) Run(g *Globals) error {
	api, logger, err := c.dial(g)
	if err != nil {
		return err
	}
	ctx, cancel := c.signalContext(logger)
	defer cancel()

	summaries, err := api.ListSessionSummaries(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No sessions")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CODE", "ID", "STATUS", "PLAYERS", "HANDS", "CREATED")
	for _, s := range summaries {
		t.Row(s.Code, s.ID, string(s.Status),
			fmt.Sprint(s.PlayerCount),
			fmt.Sprintf("%d/%d", s.CompletedHands, s.HandCount),
			s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println(t.Render())
	return nil
}
