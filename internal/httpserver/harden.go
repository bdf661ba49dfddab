package httpserver

import "net/http"

type (
	// HeaderPolicy lists the defensive headers attached to every response.
	HeaderPolicy struct {
		ReferrerPolicy        string
		ContentTypeOptions    string
		FrameOptions          string
		ContentSecurityPolicy string
	}

	hardenedWriter struct {
		http.ResponseWriter
		policy      *HeaderPolicy
		wroteHeader bool
	}
)

func DefaultHeaderPolicy() HeaderPolicy {
	return HeaderPolicy{
		ReferrerPolicy:        "no-referrer",
		ContentTypeOptions:    "nosniff",
		FrameOptions:          "SAMEORIGIN",
		ContentSecurityPolicy: "default-src 'self'",
	}
}

func (p *HeaderPolicy) apply(h http.Header) {
	h.Set("Referrer-Policy", p.ReferrerPolicy)
	h.Set("X-Content-Type-Options", p.ContentTypeOptions)
	h.Set("X-Frame-Options", p.FrameOptions)
	h.Set("Content-Security-Policy", p.ContentSecurityPolicy)
}

// Harden wraps handler so every response carries the headers from policy,
// even if the handler tried to change them.
func Harden(policy *HeaderPolicy, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policy.apply(w.Header())
		handler.ServeHTTP(&hardenedWriter{ResponseWriter: w, policy: policy}, r)
	})
}

func (h *hardenedWriter) WriteHeader(status int) {
	if !h.wroteHeader {
		h.wroteHeader = true
		h.policy.apply(h.ResponseWriter.Header())
	}
	h.ResponseWriter.WriteHeader(status)
}

func (h *hardenedWriter) Write(buf []byte) (int, error) {
	if !h.wroteHeader {
		h.WriteHeader(http.StatusOK)
	}
	return h.ResponseWriter.Write(buf)
}
