package users

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andrebq/quill/auth"
	"github.com/andrebq/quill/internal/cmdflags"
	"github.com/andrebq/quill/internal/config"
	"github.com/andrebq/quill/internal/logutil"
	"github.com/andrebq/quill/store"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func Cmd(cfg *config.Config) *cli.Command {
	var st *store.Store
	return &cli.Command{
		Name:  "users",
		Usage: "Manage user accounts directly on the database",
		Flags: []cli.Flag{
			cmdflags.Database(&cfg.Database),
			cmdflags.AuditLog(&cfg.AuditLog),
		},
		Before: func(ctx *cli.Context) error {
			var err error
			st, err = store.Open(ctx.Context, cfg.Database)
			return err
		},
		After: func(ctx *cli.Context) error {
			if st == nil {
				return nil
			}
			return st.Close()
		},
		Subcommands: []*cli.Command{
			addCmd(cfg, &st),
			roleCmd(&st),
			listCmd(&st),
		},
	}
}

func addCmd(cfg *config.Config, st **store.Store) *cli.Command {
	var username string
	var admin bool
	return &cli.Command{
		Name:  "add",
		Usage: "Register a new user (password is read from the terminal or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to register",
				Destination: &username,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "admin",
				Usage:       "Register the user as an administrator",
				Destination: &admin,
			},
		},
		Action: func(ctx *cli.Context) error {
			passwd, err := readPassword(ctx.App.ErrWriter)
			if err != nil {
				return err
			}
			defer passwd.Zero()
			appCtx := ctx.Context
			if cfg.AuditLog != "" {
				audit, closer, err := logutil.OpenAuditFile(cfg.AuditLog)
				if err != nil {
					return err
				}
				defer closer.Close()
				appCtx = logutil.WithAudit(appCtx, audit)
			}
			u, err := auth.Register(appCtx, *st, rand.Reader, username, passwd, auth.RoleOf(admin))
			if err != nil {
				return err
			}
			logger := logutil.GetOrDefault(appCtx)
			logger.Info().Str("user_id", u.ID).Str("username", u.Username).Bool("admin", u.Admin).Msg("User registered")
			return nil
		},
	}
}

func roleCmd(st **store.Store) *cli.Command {
	var username string
	var admin bool
	return &cli.Command{
		Name:  "role",
		Usage: "Promote or demote a user. Takes effect on the next admin check, existing sessions are not revoked",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to change",
				Destination: &username,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "admin",
				Usage:       "Whether the user should be an administrator",
				Destination: &admin,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			err := (*st).SetAdmin(ctx.Context, username, admin)
			if err != nil {
				return err
			}
			logger := logutil.GetOrDefault(ctx.Context)
			logger.Info().Str("username", username).Str("role", auth.RoleOf(admin).String()).Msg("Role changed")
			return nil
		},
	}
}

func listCmd(st **store.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered users",
		Action: func(ctx *cli.Context) error {
			users, err := (*st).ListUsers(ctx.Context)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tCREATED")
			for _, u := range users {
				fmt.Fprintf(tw, "%v\t%v\t%v\t%v\n", u.ID, u.Username, auth.RoleOf(u.Admin), u.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func readPassword(prompt io.Writer) (auth.PlainText, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Password: ")
		buf, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return nil, err
		}
		return auth.PlainText(buf), nil
	}
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		if sc.Err() != nil {
			return nil, sc.Err()
		}
		return nil, errors.New("missing password from stdin")
	}
	passwd := strings.TrimSpace(sc.Text())
	if len(passwd) == 0 {
		return nil, errors.New("missing password from stdin")
	}
	return auth.PlainText(passwd), nil
}
