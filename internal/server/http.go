// Package server is the demo HTTP host around the challenge service. It owns
// everything the bridges must not emit: the form element, submit control,
// challenge-token routing field, and user feedback. The bridges only
// contribute their input fragments.
package server

import (
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dknauss/twofactor-bridge/internal/challenge"
	"github.com/dknauss/twofactor-bridge/internal/hook"
	"github.com/dknauss/twofactor-bridge/internal/security"
)

// tokenField is the host-owned routing field carrying the challenge token.
const tokenField = "challenge-token"

var challengePageTmpl = template.Must(template.New("challenge-page").Parse(`<!doctype html>
<html>
<head><title>Second-factor challenge</title></head>
<body>
<form method="post" action="/challenge/verify">
<input type="hidden" name="` + tokenField + `" value="{{.Token}}" />
{{.Fragments}}
<button type="submit">Verify</button>
</form>
</body>
</html>
`))

// Server serves the demo challenge flow over HTTP.
type Server struct {
	svc *challenge.Service
	db  *sql.DB
	log *logrus.Logger
}

// New returns a Server. db may be nil; health then skips the ping.
func New(svc *challenge.Service, db *sql.DB, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{svc: svc, db: db, log: log}
}

// Router builds the demo host's routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/users/{id}/challenge", s.handleChallenge).Methods(http.MethodGet)
	r.HandleFunc("/challenge/verify", s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// handleChallenge runs detection for the user and, when a second factor is
// needed, renders the combined challenge form with a fresh challenge token.
// 204 means no challenge is needed.
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	orgID := r.URL.Query().Get("org")
	var roles []string
	if raw := r.URL.Query().Get("roles"); raw != "" {
		roles = strings.Split(raw, ",")
	}

	needs, err := s.svc.NeedsSecondFactor(r.Context(), userID, orgID, roles)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("detection failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !needs {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var fragments strings.Builder
	if err := s.svc.RenderForm(r.Context(), &fragments, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	token, challengeID, err := s.svc.IssueToken(userID)
	if err != nil {
		s.log.WithError(err).Error("token issue failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "challenge_id": challengeID}).Info("challenge rendered")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = challengePageTmpl.Execute(w, struct {
		Token     string
		Fragments template.HTML
	}{Token: token, Fragments: template.HTML(fragments.String())})
	if err != nil {
		s.log.WithError(err).Error("challenge page write failed")
	}
}

// handleVerify resolves the challenge token to a user and runs the validation
// chain over the submitted form fields.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token := r.PostFormValue(tokenField)
	userID, challengeID, err := s.svc.ValidateToken(token)
	if err != nil {
		if errors.Is(err, security.ErrInvalidToken) {
			http.Error(w, "invalid or expired challenge", http.StatusUnauthorized)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sub := hook.Submission(r.PostForm)
	delete(sub, tokenField)

	valid, err := s.svc.Verify(r.Context(), userID, sub)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "challenge_id": challengeID}).Error("verification failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "challenge_id": challengeID, "valid": valid}).Info("verification attempt")
	if !valid {
		http.Error(w, "invalid code", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"verified":true}`)
}

// handleHealth reports readiness; pings the database when one is wired.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	fmt.Fprintln(w, "ok")
}

// logRequests logs method, path, status, and duration for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
