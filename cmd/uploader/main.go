package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/mediavault/internal/buildinfo"
	"github.com/dmitrijs2005/mediavault/internal/cli"
	"github.com/dmitrijs2005/mediavault/internal/cli/config"
	"github.com/dmitrijs2005/mediavault/internal/flagx"
)

// knownFlags lists every flag the config layer consumes so positional
// arguments can be separated out.
var knownFlags = []string{"-c", "-config", "-e", "-d", "-k", "-r", "-n", "-dsn"}

func main() {
	buildinfo.PrintBuildData(os.Stderr)

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	args := flagx.ExcludeArgs(os.Args[1:], knownFlags)

	if err := app.Run(context.Background(), args); err != nil {
		log.Fatalf("%v", err)
	}
}
