package auth

// Audit event names
const (
	EventRegistrationSuccess = "registration.success"
	EventRegistrationFailure = "registration.failure"
	EventLoginSuccess        = "login.success"
	EventLoginFailure        = "login.failure"
	EventLogout              = "logout"
	EventCSRFRejected        = "csrf.rejected"
	EventAccessDenied        = "access.denied"
	EventBootstrapAdmin      = "bootstrap.admin"
)
