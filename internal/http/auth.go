package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"jichul/internal/log"
)

const sessionCookie = "jichul_session"

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return
	}

	ip := s.clientIP.ClientIP(r)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	if s.opts.Password == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.opts.Password)) != 1 {
		logger.WarnContext(r.Context(), "Login rejected", log.FieldClientIP, ip)
		writeError(w, http.StatusUnauthorized, msgWrongPassword, "")
		return
	}

	sess := s.sessions.Issue(ip)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	logger.InfoContext(r.Context(), "Login succeeded", log.FieldClientIP, ip)
	writeJSON(w, http.StatusOK, loginResponse{OK: true, Token: sess.Token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Revoke(sessionToken(r))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w)
}

func (s *Server) onLoginLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, msgTooManyAttempts, "")
}

// requireAuth rejects requests without a live session.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessions.Lookup(sessionToken(r)); !ok {
			writeError(w, http.StatusUnauthorized, msgUnauthenticated, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}
