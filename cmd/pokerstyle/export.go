package main

import (
	"fmt"
	"os"

	"github.com/lox/pokerstyle/internal/fileutil"
)

// ExportCmd downloads recorded hands in Poker Hand History format
type ExportCmd struct {
	RemoteFlags
	Session string `arg:"" help:"Session ID"`
	Hand    int    `help:"Export only this hand number"`
	Output  string `short:"o" help:"Write to this file instead of stdout"`
}

func (c *ExportCmd) Run(g *Globals) error {
	api, logger, err := c.dial(g)
	if err != nil {
		return err
	}
	ctx, cancel := c.signalContext(logger)
	defer cancel()

	var data []byte
	if c.Hand > 0 {
		s, err := api.GetSession(ctx, c.Session)
		if err != nil {
			return err
		}
		handID := ""
		for _, h := range s.Hands {
			if h.HandNumber == c.Hand {
				handID = h.ID
			}
		}
		if handID == "" {
			return fmt.Errorf("session %s has no hand %d", s.Code, c.Hand)
		}
		data, err = api.HandPHH(ctx, c.Session, handID)
		if err != nil {
			return err
		}
	} else {
		data, err = api.SessionPHH(ctx, c.Session)
		if err != nil {
			return err
		}
	}

	if c.Output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := fileutil.WriteFileAtomic(c.Output, data, 0o644); err != nil {
		return err
	}
	logger.Info("Wrote hand history", "file", c.Output, "bytes", len(data))
	return nil
}
