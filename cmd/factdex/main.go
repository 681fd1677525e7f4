package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/factdex/internal/config"
	"github.com/kailas-cloud/factdex/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:    "factdex",
		Usage:   "Fact-aware search, scroll and bulk layer over a search backend",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Configuration environment (local, dev, prod)",
				Value:   config.GetEnv(),
				Sources: cli.EnvVars("ENV"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			indicesCommand(),
			fieldsCommand(),
			datesCommand(),
			deleteCommand(),
			annotateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
