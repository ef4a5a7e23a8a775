package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	Debug     bool   `help:"Enable debug logging"`
	LogFormat string `default:"text" enum:"text,json" help:"Log output format (text|json)"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the session API server"`
	Play     PlayCmd          `cmd:"" help:"Run the tablet for a session"`
	Sessions SessionsCmd      `cmd:"" help:"List sessions on a server"`
	Stats    StatsCmd         `cmd:"" help:"Show player statistics for a session"`
	Export   ExportCmd        `cmd:"" help:"Export recorded hands as PHH"`
	Ver      VersionCmd       `cmd:"version" help:"Print the version"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokerstyle"),
		kong.Description("Record live poker hands on a shared tablet and diagnose each player's style"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
