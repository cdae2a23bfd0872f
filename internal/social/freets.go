// Package social holds the collaborators that comments and reactions hang
// off: freets, accounts and follow relationships.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alphabot-ai/fritter/internal/attach"
	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
)

type FreetView struct {
	ID           string `json:"_id"`
	Author       string `json:"author"`
	AuthorID     string `json:"authorId"`
	Content      string `json:"content"`
	DateCreated  string `json:"dateCreated"`
	DateModified string `json:"dateModified"`
}

type Freets struct {
	store store.Store
	log   *logrus.Entry
	now   func() time.Time
}

func NewFreets(st store.Store, log *logrus.Entry) *Freets {
	return &Freets{store: st, log: log, now: time.Now}
}

// Find returns the stored freet, or a freet NotFoundError.
func (f *Freets) Find(ctx context.Context, id string) (model.Freet, error) {
	freet, err := f.store.GetFreet(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return freet, attach.NotFound("freet", "Freet %s does not exist.", id)
	}
	return freet, err
}

func (f *Freets) Create(ctx context.Context, actor model.User, content string) (FreetView, error) {
	if actor.ID == "" {
		return FreetView{}, attach.ErrUnauthenticated
	}
	if err := attach.ValidateContent(content); err != nil {
		return FreetView{}, err
	}
	now := f.now()
	freet := model.Freet{
		ID:           uuid.NewString(),
		AuthorID:     actor.ID,
		Content:      content,
		DateCreated:  now,
		DateModified: now,
	}
	if err := f.store.CreateFreet(ctx, &freet); err != nil {
		return FreetView{}, fmt.Errorf("create freet: %w", err)
	}
	f.log.WithField("id", freet.ID).Debug("freet created")
	return freetView(freet, actor.Username), nil
}

func (f *Freets) List(ctx context.Context) ([]FreetView, error) {
	freets, err := f.store.ListFreets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list freets: %w", err)
	}
	return f.views(ctx, freets)
}

func (f *Freets) ListByAuthor(ctx context.Context, username string) ([]FreetView, error) {
	user, err := f.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, attach.NotFound("user", "User %s does not exist.", username)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	freets, err := f.store.ListFreetsByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list freets: %w", err)
	}
	return f.views(ctx, freets)
}

func (f *Freets) Update(ctx context.Context, actor model.User, id, content string) (FreetView, error) {
	freet, err := f.owned(ctx, actor, id)
	if err != nil {
		return FreetView{}, err
	}
	if err := attach.ValidateContent(content); err != nil {
		return FreetView{}, err
	}
	freet.Content = content
	freet.DateModified = f.now()
	if err := f.store.UpdateFreet(ctx, id, content, freet.DateModified); err != nil {
		return FreetView{}, fmt.Errorf("update freet: %w", err)
	}
	return freetView(freet, actor.Username), nil
}

// Delete removes the freet only. Comments and reactions on it stay behind
// and render with an empty parent.
func (f *Freets) Delete(ctx context.Context, actor model.User, id string) error {
	if _, err := f.owned(ctx, actor, id); err != nil {
		return err
	}
	if _, err := f.store.DeleteFreet(ctx, id); err != nil {
		return fmt.Errorf("delete freet: %w", err)
	}
	return nil
}

func (f *Freets) owned(ctx context.Context, actor model.User, id string) (model.Freet, error) {
	if actor.ID == "" {
		return model.Freet{}, attach.ErrUnauthenticated
	}
	freet, err := f.Find(ctx, id)
	if err != nil {
		return freet, err
	}
	if freet.AuthorID != actor.ID {
		return freet, attach.ErrForbidden
	}
	return freet, nil
}

func (f *Freets) views(ctx context.Context, freets []model.Freet) ([]FreetView, error) {
	names := make(map[string]string)
	out := make([]FreetView, 0, len(freets))
	for _, freet := range freets {
		name, ok := names[freet.AuthorID]
		if !ok {
			user, err := f.store.GetUser(ctx, freet.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("resolve author %s: %w", freet.AuthorID, err)
			}
			name = user.Username
			names[freet.AuthorID] = name
		}
		out = append(out, freetView(freet, name))
	}
	return out, nil
}

func freetView(f model.Freet, author string) FreetView {
	return FreetView{
		ID:           f.ID,
		Author:       author,
		AuthorID:     f.AuthorID,
		Content:      f.Content,
		DateCreated:  attach.FormatDate(f.DateCreated),
		DateModified: attach.FormatDate(f.DateModified),
	}
}
