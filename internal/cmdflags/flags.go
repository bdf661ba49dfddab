package cmdflags

import (
	"time"

	"github.com/andrebq/quill/auth"
	"github.com/urfave/cli/v2"
)

func Database(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "database",
		Aliases:     []string{"db", "d"},
		Usage:       "Path to the SQLite database holding users and posts",
		EnvVars:     []string{"QUILL_DATABASE"},
		Destination: out,
		Value:       *out,
	}
}

func Bind(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "bind",
		Usage:       "Address where the web application listens",
		EnvVars:     []string{"QUILL_BIND"},
		Destination: out,
		Value:       *out,
	}
}

func AuditLog(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "audit-log",
		Usage:       "Append-only file receiving security audit events (defaults to the process log)",
		EnvVars:     []string{"QUILL_AUDIT_LOG"},
		Destination: out,
		Value:       *out,
	}
}

func SessionTTL(out *time.Duration) cli.Flag {
	return &cli.DurationFlag{
		Name:        "session-ttl",
		Usage:       "Inactivity window after which a session expires",
		EnvVars:     []string{"QUILL_SESSION_TTL"},
		Destination: out,
		Value:       *out,
	}
}

func InsecureCookie(out *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "insecure-cookie",
		Usage:       "Allow the session cookie over plain http (local development only)",
		EnvVars:     []string{"QUILL_INSECURE_COOKIE"},
		Destination: out,
		Value:       *out,
	}
}

func FrameOptions(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "frame-options",
		Usage:       "Value of the X-Frame-Options header (SAMEORIGIN or DENY)",
		EnvVars:     []string{"QUILL_FRAME_OPTIONS"},
		Destination: out,
		Value:       *out,
	}
}

func AdminPasswordEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = auth.AdminPasswordEnvVar
	}
	return &cli.StringFlag{
		Name:        "admin-password-envvar-name",
		Usage:       "Name of the environment variable that holds the initial admin password. The password itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}

func LogLevel(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "log-level",
		Usage:       "Minimum level of the process log (debug, info, warn, error)",
		EnvVars:     []string{"QUILL_LOG_LEVEL"},
		Destination: out,
		Value:       *out,
	}
}

func LogPretty(out *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "log-pretty",
		Usage:       "Human friendly console log instead of JSON",
		EnvVars:     []string{"QUILL_LOG_PRETTY"},
		Destination: out,
		Value:       *out,
	}
}
