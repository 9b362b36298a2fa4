package middleware

import (
	"net/http"
	"strings"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	corsHeaders = []string{"Authorization", "Content-Type", "Accept"}
)

const corsMaxAge = "600"

// corsPolicy is the set of origins allowed to call the API from a browser.
// "*" allows any origin, in which case credentials are not advertised.
type corsPolicy struct {
	origins   map[string]struct{}
	anyOrigin bool
}

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

func (p corsPolicy) allowsMethod(method string) bool {
	for _, m := range corsMethods {
		if m == method {
			return true
		}
	}
	return false
}

// writeOrigin sets the headers every response to an allowed origin carries.
func (p corsPolicy) writeOrigin(h http.Header, origin string) {
	if p.anyOrigin {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	// Retry-After accompanies Busy and Timeout responses.
	h.Set("Access-Control-Expose-Headers", "Retry-After")
}

// CORS answers browser preflights for allowed origins with 204 and decorates
// every other response to them. Requests without an Origin header, or from an
// origin that is not allowed, pass through untouched.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		w.Header().Add("Vary", "Origin")
		if !policy.allows(origin) {
			next.ServeHTTP(w, r)
			return
		}

		requested := r.Header.Get("Access-Control-Request-Method")
		if r.Method != http.MethodOptions || requested == "" {
			policy.writeOrigin(w.Header(), origin)
			next.ServeHTTP(w, r)
			return
		}

		if !policy.allowsMethod(requested) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		policy.writeOrigin(w.Header(), origin)
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsHeaders, ", "))
		w.Header().Set("Access-Control-Max-Age", corsMaxAge)
		w.WriteHeader(http.StatusNoContent)
	})
}
