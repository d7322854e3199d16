package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/specsync/specsync/internal/cmd/base"
	"github.com/specsync/specsync/internal/cmd/commands/sync"
	"github.com/specsync/specsync/internal/cmd/commands/version"
)

// Commands is the CLI command registry, populated by initCommands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	baseCommand := &base.Command{
		Log: log,
		UI:  ui,
	}

	Commands = map[string]cli.CommandFactory{
		"sync": func() (cli.Command, error) {
			return &sync.Command{Command: baseCommand}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: baseCommand}, nil
		},
	}
}
