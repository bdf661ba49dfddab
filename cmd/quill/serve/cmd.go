package serve

import (
	"crypto/rand"
	"os"

	"github.com/andrebq/quill/auth"
	authapi "github.com/andrebq/quill/auth/api"
	"github.com/andrebq/quill/internal/cmdflags"
	"github.com/andrebq/quill/internal/config"
	"github.com/andrebq/quill/internal/httpserver"
	"github.com/andrebq/quill/internal/logutil"
	"github.com/andrebq/quill/store"
	"github.com/andrebq/quill/web"
	"github.com/urfave/cli/v2"
)

func Cmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the quill web application",
		Flags: []cli.Flag{
			cmdflags.Bind(&cfg.Bind),
			cmdflags.Database(&cfg.Database),
			cmdflags.AuditLog(&cfg.AuditLog),
			cmdflags.SessionTTL(&cfg.SessionTTL),
			cmdflags.InsecureCookie(&cfg.InsecureCookie),
			cmdflags.FrameOptions(&cfg.FrameOptions),
			cmdflags.AdminPasswordEnvVar(&cfg.AdminPasswordEnvVar),
		},
		Action: func(ctx *cli.Context) error {
			err := cfg.Validate()
			if err != nil {
				return err
			}
			appCtx := ctx.Context
			logger := logutil.GetOrDefault(appCtx)

			if cfg.AuditLog != "" {
				audit, closer, err := logutil.OpenAuditFile(cfg.AuditLog)
				if err != nil {
					return err
				}
				defer closer.Close()
				appCtx = logutil.WithAudit(appCtx, audit)
			}

			st, err := store.Open(appCtx, cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			created, err := auth.BootstrapAdmin(appCtx, st, rand.Reader, cfg.AdminPasswordEnvVar, os.Getenv, os.Setenv)
			if err != nil {
				return err
			}
			if created {
				logger.Info().Str("username", auth.BootstrapAdminName).Msg("Initial administrator created")
			}

			settings, err := cfg.SessionSettings(rand.Reader)
			if err != nil {
				return err
			}
			defer settings.Key.Zero()
			codec, err := auth.NewCodec(settings)
			if err != nil {
				return err
			}
			logger.Warn().Dur("session_ttl", codec.TTL()).Msg("New process key generated, sessions issued before this start are no longer valid")
			if cfg.InsecureCookie {
				logger.Warn().Msg("Session cookie will be sent over plain http")
			}

			handler, err := web.AsHandler(appCtx, web.Options{
				Store:    st,
				Realm:    authapi.NewRealm(codec, st, cfg.InsecureCookie),
				Rand:     rand.Reader,
				AuditLog: cfg.AuditLog,
			})
			if err != nil {
				return err
			}
			logger.Info().Str("bind", cfg.Bind).Str("database", cfg.Database).Msg("Starting quill")
			return httpserver.Serve(appCtx, cfg.Bind, cfg.HeaderPolicy(), handler)
		},
	}
}
