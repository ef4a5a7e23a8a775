package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerstyle/internal/client"
)

// RemoteFlags select the server a read-only command talks to
type RemoteFlags struct {
	Server  string `short:"s" default:"http://localhost:8080" env:"POKERSTYLE_SERVER" help:"Server URL"`
	Verbose bool   `help:"Log requests to stderr"`
}

func (r RemoteFlags) dial(g *Globals) (*client.Client, *log.Logger, error) {
	var w io.Writer = io.Discard
	if r.Verbose || g.Debug {
		w = os.Stderr
	}
	logger, err := newLogger(w, g, "")
	if err != nil {
		return nil, nil, err
	}
	return client.New(r.Server, client.WithLogger(logger)), logger, nil
}

func (r RemoteFlags) signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	return setupSignalHandler(logger)
}
