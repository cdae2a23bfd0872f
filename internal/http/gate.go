package httpapp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alphabot-ai/fritter/internal/attach"
	"github.com/alphabot-ai/fritter/internal/model"
)

// call carries one request through its checks and into the handler. Checks
// fill in what they looked up so the handler does not repeat the lookup.
type call struct {
	w     http.ResponseWriter
	r     *http.Request
	user  model.User
	token string

	freet   model.Freet
	target  model.User
	content string
	emotion model.Emotion

	// entityID and ownerID describe the record the route acts on.
	entityID string
	ownerID  string

	fail func(err error)
}

// check reports whether the request may proceed. A failing check has
// already written the response.
type check func(c *call) bool

// gate runs checks in order and calls h only if all of them pass.
func (s *Server) gate(h func(c *call), checks ...check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := &call{w: w, r: r}
		c.fail = func(err error) { s.fail(w, err) }
		c.user, c.token = s.identify(r)
		for _, chk := range checks {
			if !chk(c) {
				return
			}
		}
		h(c)
	}
}

func (s *Server) loggedIn(c *call) bool {
	if c.user.ID == "" {
		c.fail(attach.ErrUnauthenticated)
		return false
	}
	return true
}

func (s *Server) freetInPath(c *call) bool {
	freet, err := s.freets.Find(c.r.Context(), mux.Vars(c.r)["freetId"])
	if err != nil {
		c.fail(err)
		return false
	}
	c.freet = freet
	c.entityID = freet.ID
	c.ownerID = freet.AuthorID
	return true
}

// freetInQuery validates an optional freetId query parameter. A missing
// freet is reported under the listed kind, e.g. CommentNotFound.
func (s *Server) freetInQuery(kind string) check {
	return func(c *call) bool {
		q := c.r.URL.Query()
		if !q.Has("freetId") {
			return true
		}
		id := q.Get("freetId")
		if id == "" {
			writeError(c.w, http.StatusBadRequest, errors.New("Provided freet id must be nonempty."))
			return false
		}
		freet, err := s.freets.Find(c.r.Context(), id)
		if errors.Is(err, attach.ErrNotFound) {
			c.fail(attach.NotFound(kind, "Freet with freet ID %s does not exist.", id))
			return false
		}
		if err != nil {
			c.fail(err)
			return false
		}
		c.freet = freet
		return true
	}
}

func (s *Server) userInPath(c *call) bool {
	user, err := s.users.Find(c.r.Context(), mux.Vars(c.r)["username"])
	if err != nil {
		c.fail(err)
		return false
	}
	c.target = user
	return true
}

func (s *Server) contentShape(c *call) bool {
	var req struct {
		Content string `json:"content"`
	}
	if !decodeBody(c, &req) {
		return false
	}
	if err := attach.ValidateContent(req.Content); err != nil {
		c.fail(err)
		return false
	}
	c.content = req.Content
	return true
}

func (s *Server) emotionShape(c *call) bool {
	var req struct {
		Emotion model.Emotion `json:"emotion"`
	}
	if !decodeBody(c, &req) {
		return false
	}
	if err := attach.ValidateEmotion(req.Emotion); err != nil {
		c.fail(err)
		return false
	}
	c.emotion = req.Emotion
	return true
}

func (s *Server) ownsTarget(c *call) bool {
	if c.ownerID != c.user.ID {
		c.fail(attach.ErrForbidden)
		return false
	}
	return true
}

// entityInPath loads the record named by the path variable param.
func entityInPath[P ~string](svc *attach.Service[P], param string) check {
	return func(c *call) bool {
		a, err := svc.Find(c.r.Context(), mux.Vars(c.r)[param])
		if err != nil {
			c.fail(err)
			return false
		}
		c.entityID = a.ID
		c.ownerID = a.AuthorID
		return true
	}
}

// ownEntity loads the caller's record on the freet already in c.
func ownEntity[P ~string](svc *attach.Service[P]) check {
	return func(c *call) bool {
		a, err := svc.FindOwn(c.r.Context(), c.user, c.freet.ID)
		if err != nil {
			c.fail(err)
			return false
		}
		c.entityID = a.ID
		c.ownerID = a.AuthorID
		return true
	}
}

func decodeBody(c *call, dest any) bool {
	if err := readJSON(c.r.Body, dest); err != nil {
		writeError(c.w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}
