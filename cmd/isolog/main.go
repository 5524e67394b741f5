package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/hyson0807/isolog/internal/cli"
	"github.com/hyson0807/isolog/internal/config"
	"github.com/hyson0807/isolog/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config_path}"`
	Debug   bool   `help:"Enable debug logging."`

	Serve  cli.ServeCmd  `cmd:"" help:"Run the engine and the host bridge API." default:"1"`
	Token  cli.TokenCmd  `cmd:"" help:"Issue a bearer token for the host bridge."`
	Status cli.StatusCmd `cmd:"" help:"Print schedule, adherence and reminder settings."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("isolog"),
		kong.Description("Isotretinoin dose tracker with local reminders"),
		kong.UsageOnError(),
		kong.Vars{
			"version":     "v0.1.0",
			"config_path": config.DefaultPath(),
		},
	)

	appCtx, err := cli.LoadContext(CLI.Config, CLI.Debug, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Fatal("command failed", "command", ctx.Command(), "err", err)
	}
}
