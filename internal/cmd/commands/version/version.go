package version

import (
	"github.com/specsync/specsync/internal/cmd/base"
	"github.com/specsync/specsync/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the specsync version"
}

func (c *Command) Help() string {
	return `Usage: specsync version

  Prints the specsync version.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(version.Version)
	return 0
}
