package middleware

import (
	"net"
	"net/http"
	"strings"
)

// HSTS asks browsers to stay on HTTPS for a year.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// SecureCookies forces Secure, HttpOnly and SameSite on every cookie the
// handler sets. Only useful when the process terminates TLS itself.
func SecureCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&secureCookieWriter{ResponseWriter: w}, r)
	})
}

type secureCookieWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *secureCookieWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *secureCookieWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.ResponseWriter.Header()
	if cookies := h.Values("Set-Cookie"); len(cookies) > 0 {
		secured := make([]string, 0, len(cookies))
		for _, c := range cookies {
			secured = append(secured, ensureSecureCookie(c))
		}
		h["Set-Cookie"] = secured
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func ensureSecureCookie(cookie string) string {
	parts := strings.Split(cookie, ";")
	var secure, httpOnly, sameSite bool

	for i, p := range parts {
		p = strings.TrimSpace(p)
		lower := strings.ToLower(p)
		switch {
		case lower == "secure":
			secure = true
		case lower == "httponly":
			httpOnly = true
		case strings.HasPrefix(lower, "samesite"):
			sameSite = true
		}
		parts[i] = p
	}

	if !secure {
		parts = append(parts, "Secure")
	}
	if !httpOnly {
		parts = append(parts, "HttpOnly")
	}
	if !sameSite {
		parts = append(parts, "SameSite=Strict")
	}
	return strings.Join(parts, "; ")
}

// IsHostAllowed matches host against allowedHosts, ignoring case and port.
// An empty list allows everything.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	host = strings.ToLower(strings.TrimSpace(host))
	name := hostname(host)
	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if host == allowed || name == hostname(allowed) {
			return true
		}
	}
	return false
}

// hostname strips an optional port and IPv6 brackets.
func hostname(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
}
