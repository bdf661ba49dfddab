package auth

import (
	"context"
	"io"
	"os"

	"github.com/andrebq/quill/internal/logutil"
)

const (
	AdminPasswordEnvVar = "QUILL_ADMIN_PASSWORD"
	BootstrapAdminName  = "admin"
)

type (
	Provisioner interface {
		Directory
		IsEmpty(ctx context.Context) (bool, error)
	}
)

// BootstrapAdmin creates the administrator account when the directory has
// no users at all. The password is taken from the environment variable
// varname and the variable is cleared right after reading it.
//
// Returns true if the account was created.
func BootstrapAdmin(ctx context.Context, dir Provisioner, rnd io.Reader, varname string, getfn func(string) string, setfn func(string, string) error) (bool, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	passwd := PlainText(getfn(varname))
	defer passwd.Zero()
	setfn(varname, "")

	empty, err := dir.IsEmpty(ctx)
	if err != nil || !empty {
		return false, err
	}
	if len(passwd) == 0 {
		return false, nil
	}
	u, err := Register(ctx, dir, rnd, BootstrapAdminName, passwd, RoleAdmin)
	if err != nil {
		return false, err
	}
	logger := logutil.Audit(ctx)
	logger.Info().Str("event", EventBootstrapAdmin).Str("user_id", u.ID).Msg("Bootstrap administrator provisioned")
	return true, nil
}
