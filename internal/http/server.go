package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/alphabot-ai/fritter/internal/attach"
	"github.com/alphabot-ai/fritter/internal/auth"
	"github.com/alphabot-ai/fritter/internal/config"
	"github.com/alphabot-ai/fritter/internal/logging"
	"github.com/alphabot-ai/fritter/internal/metrics"
	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/social"
	"github.com/alphabot-ai/fritter/internal/store"
)

type Server struct {
	handler   http.Handler
	store     store.Store
	auth      *auth.Service
	users     *social.Users
	freets    *social.Freets
	comments  *attach.Service[string]
	reactions *attach.Service[model.Emotion]
	metrics   *metrics.Metrics
	cfg       config.Config
	log       *logrus.Entry
}

func NewServer(st store.Store, authSvc *auth.Service, cfg config.Config, logger *logrus.Logger, m *metrics.Metrics) *Server {
	opts := []attach.Option{
		attach.WithRecorder(m),
		attach.WithLogger(logger.WithField("component", "attach")),
	}
	comments := attach.NewService(attach.CommentKind, st.Comments(), st, st, opts...)
	reactions := attach.NewService(attach.ReactionKind, st.Reactions(), st, st, opts...)

	s := &Server{
		store:     st,
		auth:      authSvc,
		users:     social.NewUsers(st, logger.WithField("component", "users"), comments, reactions),
		freets:    social.NewFreets(st, logger.WithField("component", "freets")),
		comments:  comments,
		reactions: reactions,
		metrics:   m,
		cfg:       cfg,
		log:       logger.WithField("component", "http"),
	}
	s.handler = logging.AccessLog(s.log, s.routes())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/comments", s.gate(s.handleListComments, s.freetInQuery(s.comments.Kind().Name))).Methods(http.MethodGet)
	api.HandleFunc("/comments/{commentId}", s.gate(s.handleGetComment, entityInPath(s.comments, "commentId"))).Methods(http.MethodGet)
	api.HandleFunc("/comments/{freetId}", s.gate(s.handleCreateComment, s.loggedIn, s.freetInPath, s.contentShape)).Methods(http.MethodPost)
	api.HandleFunc("/comments/{commentId}", s.gate(s.handleDeleteComment, s.loggedIn, entityInPath(s.comments, "commentId"), s.ownsTarget)).Methods(http.MethodDelete)

	api.HandleFunc("/reactions", s.gate(s.handleListReactions, s.freetInQuery(s.reactions.Kind().Name))).Methods(http.MethodGet)
	api.HandleFunc("/reactions/{reactionId}", s.gate(s.handleGetReaction, entityInPath(s.reactions, "reactionId"))).Methods(http.MethodGet)
	api.HandleFunc("/reactions/{freetId}", s.gate(s.handleCreateReaction, s.loggedIn, s.freetInPath, s.emotionShape)).Methods(http.MethodPost)
	api.HandleFunc("/reactions/{freetId}", s.gate(s.handleUpdateReaction, s.loggedIn, s.freetInPath, s.emotionShape, ownEntity(s.reactions))).Methods(http.MethodPut)
	api.HandleFunc("/reactions/{freetId}", s.gate(s.handleDeleteReaction, s.loggedIn, s.freetInPath, ownEntity(s.reactions))).Methods(http.MethodDelete)

	api.HandleFunc("/freets", s.gate(s.handleListFreets)).Methods(http.MethodGet)
	api.HandleFunc("/freets", s.gate(s.handleCreateFreet, s.loggedIn, s.contentShape)).Methods(http.MethodPost)
	api.HandleFunc("/freets/{freetId}", s.gate(s.handleUpdateFreet, s.loggedIn, s.freetInPath, s.ownsTarget, s.contentShape)).Methods(http.MethodPut)
	api.HandleFunc("/freets/{freetId}", s.gate(s.handleDeleteFreet, s.loggedIn, s.freetInPath, s.ownsTarget)).Methods(http.MethodDelete)

	api.HandleFunc("/users", s.gate(s.handleCreateUser)).Methods(http.MethodPost)
	api.HandleFunc("/users", s.gate(s.handleRenameUser, s.loggedIn)).Methods(http.MethodPut)
	api.HandleFunc("/users", s.gate(s.handleDeleteUser, s.loggedIn)).Methods(http.MethodDelete)
	api.HandleFunc("/users/session", s.gate(s.handleSignIn)).Methods(http.MethodPost)
	api.HandleFunc("/users/session", s.gate(s.handleSignOut, s.loggedIn)).Methods(http.MethodDelete)

	api.HandleFunc("/follows", s.gate(s.handleListFollows)).Methods(http.MethodGet)
	api.HandleFunc("/follows/{username}", s.gate(s.handleFollow, s.loggedIn, s.userInPath)).Methods(http.MethodPut)
	api.HandleFunc("/follows/{username}", s.gate(s.handleUnfollow, s.loggedIn, s.userInPath)).Methods(http.MethodDelete)

	api.HandleFunc("/openapi.yaml", s.serveOpenAPIYAML).Methods(http.MethodGet)
	api.HandleFunc("/openapi.json", s.serveOpenAPIJSON).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(swaggerHandler())
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// instrument records request counts and latency by route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		start := time.Now()
		rec := logging.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)
		s.metrics.ObserveRequest(route, r.Method, rec.Status, time.Since(start))
	})
}

// identify resolves the caller from the session cookie or a bearer token.
// Anonymous callers get a zero User.
func (s *Server) identify(r *http.Request) (model.User, string) {
	token := ""
	if cookie, err := r.Cookie(s.cfg.SessionCookie); err == nil {
		token = cookie.Value
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if token == "" {
		return model.User{}, ""
	}
	user, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
			s.log.WithError(err).Error("authenticate")
		}
		return model.User{}, ""
	}
	return user, token
}

// fail maps a domain error to its status and body.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var nf *attach.NotFoundError
	var verr *attach.ValidationError
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]string{nf.Kind + "NotFound": nf.Message},
		})
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.TooLong {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, verr)
	case errors.Is(err, attach.ErrUnauthenticated):
		writeError(w, http.StatusForbidden, errors.New("You must be logged in."))
	case errors.Is(err, attach.ErrForbidden):
		writeError(w, http.StatusForbidden, errors.New("You may only modify your own content."))
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	default:
		s.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
