package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/quill/cmd/quill/serve"
	"github.com/andrebq/quill/cmd/quill/users"
	"github.com/andrebq/quill/internal/cmdflags"
	"github.com/andrebq/quill/internal/config"
	"github.com/andrebq/quill/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	err := config.LoadDotEnv(".env")
	if err != nil {
		log.Error().Err(err).Msg("Unable to load environment")
		os.Exit(1)
	}
	cfg := config.Default()
	app := &cli.App{
		Name:  "quill",
		Usage: "A small multi-user publishing application",
		Flags: []cli.Flag{
			cmdflags.LogLevel(&cfg.LogLevel),
			cmdflags.LogPretty(&cfg.LogPretty),
		},
		Before: func(ctx *cli.Context) error {
			logger, err := logutil.New(os.Stderr, cfg.LogLevel, cfg.LogPretty)
			if err != nil {
				return err
			}
			ctx.Context = logutil.WithLogger(ctx.Context, logger)
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(&cfg),
			users.Cmd(&cfg),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
