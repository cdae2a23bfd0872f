package store

import (
	"context"
	"errors"
	"time"

	"github.com/alphabot-ai/fritter/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type Store interface {
	UserStore
	FollowStore
	SessionStore
	FreetStore
	Comments() AttachmentStore[string]
	Reactions() AttachmentStore[model.Emotion]
	Ping(ctx context.Context) error
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	FindUserByUsername(ctx context.Context, username string) (model.User, error)
	RenameUser(ctx context.Context, id, username string) error
	DeleteUser(ctx context.Context, id string) error
}

type FollowStore interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	ListFollows(ctx context.Context, userID string) (model.Follows, error)
	DeleteFollowsByUser(ctx context.Context, userID string) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, token string) (model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error
}

type FreetStore interface {
	CreateFreet(ctx context.Context, freet *model.Freet) error
	GetFreet(ctx context.Context, id string) (model.Freet, error)
	ListFreets(ctx context.Context) ([]model.Freet, error)
	ListFreetsByAuthor(ctx context.Context, authorID string) ([]model.Freet, error)
	UpdateFreet(ctx context.Context, id, content string, modified time.Time) error
	DeleteFreet(ctx context.Context, id string) (bool, error)
	DeleteFreetsByAuthor(ctx context.Context, authorID string) error
}

// AttachmentStore persists one kind of attachment. Implementations return
// ErrNotFound for unknown ids and ErrDuplicate when a uniqueness rule of the
// kind is violated.
type AttachmentStore[P ~string] interface {
	Create(ctx context.Context, a *model.Attachment[P]) error
	Get(ctx context.Context, id string) (model.Attachment[P], error)
	FindByAuthorAndFreet(ctx context.Context, authorID, freetID string) (model.Attachment[P], error)
	List(ctx context.Context) ([]model.Attachment[P], error)
	ListByFreet(ctx context.Context, freetID string) ([]model.Attachment[P], error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.Attachment[P], error)
	UpdatePayload(ctx context.Context, id string, payload P, modified time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByAuthor(ctx context.Context, authorID string) error
}
