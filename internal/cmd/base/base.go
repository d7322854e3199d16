// Package base carries the pieces every CLI command embeds: the shared
// logger and UI, and a flag set that can render its own help text.
package base

import (
	"bytes"
	"flag"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Command is embedded by all CLI commands.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui
}

// FlagSet wraps a standard flag set with help rendering.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help returns the rendered flag defaults, for appending to a command's
// help output.
func (f *FlagSet) Help() string {
	var buf bytes.Buffer
	f.FlagSet.SetOutput(&buf)
	f.FlagSet.PrintDefaults()
	return "\nCommand Options:\n\n" + buf.String()
}
