package main

import (
	"os"

	"github.com/specsync/specsync/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
