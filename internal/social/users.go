package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/alphabot-ai/fritter/internal/attach"
	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
)

type UserView struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	DateJoined string `json:"dateJoined"`
}

func NewUserView(u model.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, DateJoined: attach.FormatDate(u.DateJoined)}
}

// AuthorCleaner removes everything a user authored of one attachment kind.
type AuthorCleaner interface {
	DeleteByAuthor(ctx context.Context, authorID string) error
}

type Users struct {
	store    store.Store
	cleaners []AuthorCleaner
	log      *logrus.Entry
}

func NewUsers(st store.Store, log *logrus.Entry, cleaners ...AuthorCleaner) *Users {
	return &Users{store: st, cleaners: cleaners, log: log}
}

func (u *Users) Find(ctx context.Context, username string) (model.User, error) {
	user, err := u.store.FindUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return user, attach.NotFound("user", "User %s does not exist.", username)
	}
	return user, err
}

func (u *Users) Rename(ctx context.Context, actor model.User, username string) (model.User, error) {
	if actor.ID == "" {
		return model.User{}, attach.ErrUnauthenticated
	}
	if err := attach.ValidateUsername(username); err != nil {
		return model.User{}, err
	}
	if err := u.store.RenameUser(ctx, actor.ID, username); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, fmt.Errorf("username %s is already taken: %w", username, err)
		}
		return model.User{}, fmt.Errorf("rename user: %w", err)
	}
	actor.Username = username
	return actor, nil
}

// Delete removes the account and everything hanging off it.
func (u *Users) Delete(ctx context.Context, actor model.User) error {
	if actor.ID == "" {
		return attach.ErrUnauthenticated
	}
	for _, c := range u.cleaners {
		if err := c.DeleteByAuthor(ctx, actor.ID); err != nil {
			return err
		}
	}
	steps := []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{"freets", u.store.DeleteFreetsByAuthor},
		{"follows", u.store.DeleteFollowsByUser},
		{"sessions", u.store.DeleteSessionsByUser},
		{"user", u.store.DeleteUser},
	}
	for _, step := range steps {
		if err := step.fn(ctx, actor.ID); err != nil {
			return fmt.Errorf("delete %s: %w", step.name, err)
		}
	}
	u.log.WithField("user", actor.ID).Info("account deleted")
	return nil
}

func (u *Users) Follow(ctx context.Context, actor model.User, username string) error {
	target, err := u.followTarget(ctx, actor, username)
	if err != nil {
		return err
	}
	if err := u.store.Follow(ctx, actor.ID, target.ID); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (u *Users) Unfollow(ctx context.Context, actor model.User, username string) error {
	target, err := u.followTarget(ctx, actor, username)
	if err != nil {
		return err
	}
	removed, err := u.store.Unfollow(ctx, actor.ID, target.ID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if !removed {
		return attach.NotFound("follow", "You do not follow %s.", username)
	}
	return nil
}

func (u *Users) Follows(ctx context.Context, username string) (model.Follows, error) {
	user, err := u.Find(ctx, username)
	if err != nil {
		return model.Follows{}, err
	}
	follows, err := u.store.ListFollows(ctx, user.ID)
	if err != nil {
		return model.Follows{}, fmt.Errorf("list follows: %w", err)
	}
	return follows, nil
}

func (u *Users) followTarget(ctx context.Context, actor model.User, username string) (model.User, error) {
	if actor.ID == "" {
		return model.User{}, attach.ErrUnauthenticated
	}
	target, err := u.Find(ctx, username)
	if err != nil {
		return target, err
	}
	if target.ID == actor.ID {
		return target, &attach.ValidationError{Field: "username", Message: "You cannot follow yourself."}
	}
	return target, nil
}
