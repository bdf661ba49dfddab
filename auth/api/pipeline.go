package api

import "net/http"

type (
	Verdict byte

	// Decision is what a guard tells the dispatcher to do with the request.
	// Cookies are written regardless of the verdict.
	Decision struct {
		Verdict  Verdict
		Status   int
		Location string
		Message  string
		Cookies  []*http.Cookie
	}

	// Guard inspects a request before the handler runs. The returned
	// request replaces the current one for the next guards.
	Guard func(r *http.Request) (*http.Request, Decision)
)

const (
	Allow Verdict = iota
	Redirect
	Deny
)

func allow(cookies ...*http.Cookie) Decision {
	return Decision{Verdict: Allow, Cookies: cookies}
}

func redirectTo(location string) Decision {
	return Decision{Verdict: Redirect, Location: location, Status: http.StatusSeeOther}
}

func deny(status int, msg string) Decision {
	return Decision{Verdict: Deny, Status: status, Message: msg}
}

// Chain runs guards in order and only calls handler if every one of them
// allowed the request. Unknown verdicts deny.
func Chain(handler http.Handler, guards ...Guard) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, g := range guards {
			var d Decision
			r, d = g(r)
			for _, c := range d.Cookies {
				http.SetCookie(w, c)
			}
			switch d.Verdict {
			case Allow:
				continue
			case Redirect:
				status := d.Status
				if status == 0 {
					status = http.StatusSeeOther
				}
				http.Redirect(w, r, d.Location, status)
				return
			default:
				status := d.Status
				if status == 0 {
					status = http.StatusForbidden
				}
				msg := d.Message
				if msg == "" {
					msg = http.StatusText(status)
				}
				http.Error(w, msg, status)
				return
			}
		}
		handler.ServeHTTP(w, r)
	})
}
