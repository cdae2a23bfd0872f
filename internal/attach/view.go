package attach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
)

// View is the client representation of a comment or reaction.
type View struct {
	ID           string `json:"_id"`
	Author       string `json:"author"`
	AuthorID     string `json:"authorId"`
	FreetID      string `json:"freetId"`
	Freet        string `json:"freet"`
	Content      string `json:"content,omitempty"`
	Emotion      string `json:"emotion,omitempty"`
	DateCreated  string `json:"dateCreated"`
	DateModified string `json:"dateModified"`
}

// FormatDate renders t in UTC as e.g. "October 17th 2026, 3:04:05 pm".
func FormatDate(t time.Time) string {
	t = t.UTC()
	return t.Format("January ") + humanize.Ordinal(t.Day()) + t.Format(" 2006, 3:04:05 pm")
}

// resolver joins author names and parent bodies at read time. It caches
// lookups for the duration of a single call.
type resolver struct {
	users  store.UserStore
	freets store.FreetStore
	names  map[string]string
	bodies map[string]string
}

func newResolver(users store.UserStore, freets store.FreetStore) *resolver {
	return &resolver{
		users:  users,
		freets: freets,
		names:  make(map[string]string),
		bodies: make(map[string]string),
	}
}

func (r *resolver) username(ctx context.Context, id string) (string, error) {
	if name, ok := r.names[id]; ok {
		return name, nil
	}
	user, err := r.users.GetUser(ctx, id)
	if err != nil {
		return "", fmt.Errorf("resolve author %s: %w", id, err)
	}
	r.names[id] = user.Username
	return user.Username, nil
}

// freetBody returns "" for a freet that no longer exists.
func (r *resolver) freetBody(ctx context.Context, id string) (string, error) {
	if body, ok := r.bodies[id]; ok {
		return body, nil
	}
	freet, err := r.freets.GetFreet(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		freet.Content = ""
	case err != nil:
		return "", fmt.Errorf("resolve freet %s: %w", id, err)
	}
	r.bodies[id] = freet.Content
	return freet.Content, nil
}

func assemble[P ~string](ctx context.Context, kind Kind[P], r *resolver, a model.Attachment[P]) (View, error) {
	author, err := r.username(ctx, a.AuthorID)
	if err != nil {
		return View{}, err
	}
	body, err := r.freetBody(ctx, a.FreetID)
	if err != nil {
		return View{}, err
	}
	v := View{
		ID:           a.ID,
		Author:       author,
		AuthorID:     a.AuthorID,
		FreetID:      a.FreetID,
		Freet:        body,
		DateCreated:  FormatDate(a.DateCreated),
		DateModified: FormatDate(a.DateModified),
	}
	kind.Render(&v, a.Payload)
	return v, nil
}
