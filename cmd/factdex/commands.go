package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/factdex/internal/domain"
	"github.com/kailas-cloud/factdex/internal/domain/query"
	"github.com/kailas-cloud/factdex/internal/transport/mlp"
)

var datasetsFlag = &cli.StringFlag{
	Name:     "datasets",
	Aliases:  []string{"d"},
	Usage:    "Comma-separated index or index/mapping list",
	Required: true,
}

func indicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "indices",
		Usage: "List backend indices",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, c.String("env"), func(a *app) error {
				indices, err := a.admin.Indices(ctx)
				if err != nil {
					return err
				}
				return printJSON(indices)
			})
		},
	}
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fields",
		Usage: "List mapped fields and fact fields of datasets",
		Flags: []cli.Flag{
			datasetsFlag,
			&cli.BoolFlag{
				Name:  "facts",
				Usage: "List fact-bearing fields per fact type instead",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			datasets, err := domain.ParseDatasets(c.String("datasets"))
			if err != nil {
				return err
			}
			return withApp(ctx, c.String("env"), func(a *app) error {
				s := a.session(datasets, a.logger)
				if c.Bool("facts") {
					fields, err := s.FieldsWithFacts(ctx)
					if err != nil {
						return err
					}
					return printJSON(fields)
				}
				fields, err := s.MappedFields(ctx)
				if err != nil {
					return err
				}
				return printJSON(fields)
			})
		},
	}
}

func datesCommand() *cli.Command {
	return &cli.Command{
		Name:  "dates",
		Usage: "Print the earliest and latest value of a date field",
		Flags: []cli.Flag{
			datasetsFlag,
			&cli.StringFlag{
				Name:     "field",
				Usage:    "Date field path",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			datasets, err := domain.ParseDatasets(c.String("datasets"))
			if err != nil {
				return err
			}
			return withApp(ctx, c.String("env"), func(a *app) error {
				minDate, maxDate, err := a.session(datasets, a.logger).ExtremeDates(ctx, c.String("field"))
				if err != nil {
					return err
				}
				return printJSON(map[string]string{"min": minDate, "max": maxDate})
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete every document matched by a combined query",
		Flags: []cli.Flag{
			datasetsFlag,
			&cli.StringFlag{
				Name:     "query",
				Usage:    "Path to a combined query JSON file, - for stdin",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "scroll-ttl",
				Usage: "Cursor keep-alive, e.g. 5m",
			},
			&cli.BoolFlag{
				Name:  "unblock",
				Usage: "Clear the read-only block of the indices first",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			datasets, err := domain.ParseDatasets(c.String("datasets"))
			if err != nil {
				return err
			}
			raw, err := readInput(c.String("query"))
			if err != nil {
				return err
			}
			q, err := query.Parse(raw)
			if err != nil {
				return err
			}
			if q.Main.Bool.IsEmpty() {
				return fmt.Errorf("refusing to delete with an empty main query: %w", domain.ErrInvalidArgument)
			}
			return withApp(ctx, c.String("env"), func(a *app) error {
				s := a.session(datasets, a.logger)
				s.Load(q)
				if c.Bool("unblock") {
					if err := s.ClearReadOnlyBlock(ctx); err != nil {
						return err
					}
				}
				n, err := s.Delete(ctx, c.String("scroll-ttl"))
				if err != nil {
					return err
				}
				return printJSON(map[string]int{"deleted": n})
			})
		},
	}
}

func annotateCommand() *cli.Command {
	return &cli.Command{
		Name:  "annotate",
		Usage: "Send texts to the annotation task service and wait for the result",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "text",
				Usage:    "Text to annotate, repeatable",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, c.String("env"), func(a *app) error {
				adapter, err := mlp.New(mlp.Config{
					URL:          a.cfg.MLP.URL,
					Type:         a.cfg.MLP.Type,
					PollInterval: time.Duration(a.cfg.MLP.PollIntervalSec) * time.Second,
					MaxFailures:  a.cfg.MLP.MaxFailures,
					Logger:       a.logger,
				})
				if err != nil {
					return err
				}
				texts, err := json.Marshal(c.StringSlice("text"))
				if err != nil {
					return fmt.Errorf("encode texts: %w", err)
				}
				result, err := adapter.Process(ctx, url.Values{"texts": {string(texts)}})
				if err != nil {
					var te *mlp.TaskError
					if errors.As(err, &te) && len(te.Last) > 0 {
						_ = printJSON(te.Last)
					}
					return err
				}
				return printJSON(result)
			})
		},
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
