package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	User string `json:"user"`
}

// handleLogin signs in the caller's session. Without a valid cookie a session
// is registered only once the credentials are accepted. A failed attempt
// leaves an existing session signed out.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("login: decode body: %v", err))
		return
	}

	sess := s.sessionFrom(r)
	var err error
	if sess == nil {
		var id string
		id, sess, err = s.sessions.Login(req.Username, req.Password)
		if err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
	} else if err = sess.Login(req.Username, req.Password); err != nil {
		sess.Logout()
	}
	if err != nil {
		s.metrics.logins.WithLabelValues("failure").Inc()
		zap.L().Info("login failed", zap.String("username", req.Username))
		writeError(w, err)
		return
	}
	s.metrics.logins.WithLabelValues("success").Inc()
	zap.L().Info("login", zap.String("user", sess.CurrentUser()))
	writeJSON(w, http.StatusOK, userResponse{User: sess.CurrentUser()})
}

// handleLogout forgets the session and expires the cookie. It succeeds for
// anonymous callers too.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			sess.Logout()
		}
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, auth.State{})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userResponse{User: currentUser(r.Context())})
}
