// Package attach implements comments and reactions: records authored by a
// user and hung off a single freet. Both kinds share one generic service and
// differ only in their Kind.
package attach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
)

// Recorder receives a notification for every attachment created.
type Recorder interface {
	AttachmentCreated(kind string)
}

type Service[P ~string] struct {
	kind   Kind[P]
	items  store.AttachmentStore[P]
	users  store.UserStore
	freets store.FreetStore
	options
}

type options struct {
	recorder Recorder
	log      *logrus.Entry
	now      func() time.Time
}

type Option func(*options)

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func WithLogger(log *logrus.Entry) Option {
	return func(o *options) { o.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewService[P ~string](kind Kind[P], items store.AttachmentStore[P], users store.UserStore, freets store.FreetStore, opts ...Option) *Service[P] {
	o := options{
		log: logrus.NewEntry(logrus.StandardLogger()),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.WithField("kind", kind.Name)
	return &Service[P]{
		kind:    kind,
		items:   items,
		users:   users,
		freets:  freets,
		options: o,
	}
}

func (s *Service[P]) Kind() Kind[P] {
	return s.kind
}

// Create attaches a new record by actor to freetID.
func (s *Service[P]) Create(ctx context.Context, actor model.User, freetID string, payload P) (View, error) {
	if actor.ID == "" {
		return View{}, ErrUnauthenticated
	}
	if err := s.kind.Validate(payload); err != nil {
		return View{}, err
	}
	if _, err := s.freets.GetFreet(ctx, freetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, notFound("freet", "Freet %s does not exist.", freetID)
		}
		return View{}, fmt.Errorf("get freet: %w", err)
	}

	now := s.now()
	a := model.Attachment[P]{
		ID:           uuid.NewString(),
		AuthorID:     actor.ID,
		FreetID:      freetID,
		Payload:      payload,
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.items.Create(ctx, &a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return View{}, fmt.Errorf("you already have a %s on freet %s: %w", s.kind.Name, freetID, err)
		}
		return View{}, fmt.Errorf("create %s: %w", s.kind.Name, err)
	}
	if s.recorder != nil {
		s.recorder.AttachmentCreated(s.kind.Name)
	}
	s.log.WithFields(logrus.Fields{"id": a.ID, "freet": freetID, "author": actor.ID}).Debug("created")
	return assemble(ctx, s.kind, s.resolver(), a)
}

// Find returns the stored record without resolving references.
func (s *Service[P]) Find(ctx context.Context, id string) (model.Attachment[P], error) {
	a, err := s.items.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return a, notFound(s.kind.Name, "%s %s does not exist.", s.kind.Name, id)
	}
	return a, err
}

// FindOwn returns actor's record on freetID.
func (s *Service[P]) FindOwn(ctx context.Context, actor model.User, freetID string) (model.Attachment[P], error) {
	a, err := s.items.FindByAuthorAndFreet(ctx, actor.ID, freetID)
	if errors.Is(err, store.ErrNotFound) {
		return a, notFound(s.kind.Name, "You have no %s on freet %s.", s.kind.Name, freetID)
	}
	return a, err
}

func (s *Service[P]) Get(ctx context.Context, id string) (View, error) {
	a, err := s.Find(ctx, id)
	if err != nil {
		return View{}, err
	}
	return assemble(ctx, s.kind, s.resolver(), a)
}

// List returns every record, most recently modified first.
func (s *Service[P]) List(ctx context.Context) ([]View, error) {
	return s.assembleAll(ctx)(s.items.List(ctx))
}

func (s *Service[P]) ListByFreet(ctx context.Context, freetID string) ([]View, error) {
	return s.assembleAll(ctx)(s.items.ListByFreet(ctx, freetID))
}

func (s *Service[P]) ListByAuthor(ctx context.Context, username string) ([]View, error) {
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("user", "User %s does not exist.", username)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.assembleAll(ctx)(s.items.ListByAuthor(ctx, user.ID))
}

// Update replaces the payload of record id. Only its author may do so.
func (s *Service[P]) Update(ctx context.Context, actor model.User, id string, payload P) (View, error) {
	a, err := s.Find(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.update(ctx, actor, a, payload)
}

// UpdateOwn replaces the payload of actor's record on freetID.
func (s *Service[P]) UpdateOwn(ctx context.Context, actor model.User, freetID string, payload P) (View, error) {
	a, err := s.FindOwn(ctx, actor, freetID)
	if err != nil {
		return View{}, err
	}
	return s.update(ctx, actor, a, payload)
}

func (s *Service[P]) update(ctx context.Context, actor model.User, a model.Attachment[P], payload P) (View, error) {
	if err := s.authorize(actor, a); err != nil {
		return View{}, err
	}
	if err := s.kind.Validate(payload); err != nil {
		return View{}, err
	}
	a.Payload = payload
	a.DateModified = s.now()
	if err := s.items.UpdatePayload(ctx, a.ID, payload, a.DateModified); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return View{}, notFound(s.kind.Name, "%s %s does not exist.", s.kind.Name, a.ID)
		}
		return View{}, fmt.Errorf("update %s: %w", s.kind.Name, err)
	}
	return assemble(ctx, s.kind, s.resolver(), a)
}

// Delete removes record id. Only its author may do so.
func (s *Service[P]) Delete(ctx context.Context, actor model.User, id string) error {
	a, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, actor, a)
}

func (s *Service[P]) DeleteOwn(ctx context.Context, actor model.User, freetID string) error {
	a, err := s.FindOwn(ctx, actor, freetID)
	if err != nil {
		return err
	}
	return s.delete(ctx, actor, a)
}

func (s *Service[P]) delete(ctx context.Context, actor model.User, a model.Attachment[P]) error {
	if err := s.authorize(actor, a); err != nil {
		return err
	}
	deleted, err := s.items.Delete(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.kind.Name, err)
	}
	if !deleted {
		return notFound(s.kind.Name, "%s %s does not exist.", s.kind.Name, a.ID)
	}
	return nil
}

// DeleteByAuthor removes everything authorID wrote. Calling it again is a
// no-op.
func (s *Service[P]) DeleteByAuthor(ctx context.Context, authorID string) error {
	if err := s.items.DeleteByAuthor(ctx, authorID); err != nil {
		return fmt.Errorf("delete %s by author: %w", s.kind.Name, err)
	}
	return nil
}

func (s *Service[P]) authorize(actor model.User, a model.Attachment[P]) error {
	if actor.ID == "" {
		return ErrUnauthenticated
	}
	if actor.ID != a.AuthorID {
		return ErrForbidden
	}
	return nil
}

func (s *Service[P]) resolver() *resolver {
	return newResolver(s.users, s.freets)
}

func (s *Service[P]) assembleAll(ctx context.Context) func([]model.Attachment[P], error) ([]View, error) {
	return func(items []model.Attachment[P], err error) ([]View, error) {
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.kind.Name, err)
		}
		r := s.resolver()
		views := make([]View, 0, len(items))
		for _, a := range items {
			v, err := assemble(ctx, s.kind, r, a)
			if err != nil {
				return nil, err
			}
			views = append(views, v)
		}
		return views, nil
	}
}
