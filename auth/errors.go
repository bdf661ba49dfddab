package auth

import "fmt"

type (
	// ValidationError is a malformed username or password, it is safe to
	// show to the user.
	ValidationError struct {
		Field  string
		Reason string
	}

	// CredentialMismatch never tells apart an unknown username from a
	// wrong password.
	CredentialMismatch struct{}

	DuplicateIdentity struct {
		Username string
	}

	SessionInvalid struct {
		cause error
	}

	ForgeryRejected struct {
		Reason string
	}

	AccessDenied struct {
		Username string
	}
)

func (v ValidationError) Error() string {
	return fmt.Sprintf("invalid %v. %v", v.Field, v.Reason)
}

func (CredentialMismatch) Error() string {
	return "invalid username or password"
}

func (d DuplicateIdentity) Error() string {
	return "username already exists"
}

func (s SessionInvalid) Error() string {
	if s.cause == nil {
		return "session is not valid"
	}
	return fmt.Sprintf("session is not valid, cause %v", s.cause)
}

func (s SessionInvalid) Unwrap() error {
	return s.cause
}

func (f ForgeryRejected) Error() string {
	return fmt.Sprintf("anti-forgery check failed: %v", f.Reason)
}

func (AccessDenied) Error() string {
	return "access denied"
}
