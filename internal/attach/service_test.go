package attach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
	"github.com/alphabot-ai/fritter/internal/store/sqlite"
)

type fixture struct {
	st        *sqlite.Store
	comments  *Service[string]
	reactions *Service[model.Emotion]
	alice     model.User
	bob       model.User
	freet     model.Freet
	created   map[string]int
}

func (f *fixture) AttachmentCreated(kind string) {
	f.created[kind]++
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	f := &fixture{st: st, created: map[string]int{}}
	clock := time.Date(2026, time.October, 17, 15, 4, 5, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	f.comments = NewService(CommentKind, st.Comments(), st, st, WithRecorder(f), WithClock(now))
	f.reactions = NewService(ReactionKind, st.Reactions(), st, st, WithRecorder(f), WithClock(now))

	f.alice = model.User{ID: "u-alice", Username: "alice", PasswordHash: "x", DateJoined: clock}
	f.bob = model.User{ID: "u-bob", Username: "bob", PasswordHash: "x", DateJoined: clock}
	require.NoError(t, st.CreateUser(ctx, &f.alice))
	require.NoError(t, st.CreateUser(ctx, &f.bob))
	f.freet = model.Freet{ID: "f1", AuthorID: f.alice.ID, Content: "first freet", DateCreated: clock, DateModified: clock}
	require.NoError(t, st.CreateFreet(ctx, &f.freet))
	return f
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		tooLong bool
	}{
		{name: "single char", content: "a"},
		{name: "exactly max", content: strings.Repeat("a", MaxContentLength)},
		{name: "max in multibyte runes", content: strings.Repeat("é", MaxContentLength)},
		{name: "one over max", content: strings.Repeat("a", MaxContentLength+1), wantErr: true, tooLong: true},
		{name: "empty", content: "", wantErr: true},
		{name: "whitespace only", content: " \t\n ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.content)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.tooLong, verr.TooLong)
		})
	}
}

func TestValidateEmotion(t *testing.T) {
	for _, e := range model.Emotions {
		assert.NoError(t, ValidateEmotion(e), e)
	}
	for _, e := range []model.Emotion{"", "LIKE", "meh", "like "} {
		var verr *ValidationError
		assert.ErrorAs(t, ValidateEmotion(e), &verr, string(e))
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("some_user-1"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("has space"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 33)))
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2026, time.October, 1, 0, 5, 9, 0, time.UTC)
	assert.Equal(t, "October 1st 2026, 12:05:09 am", FormatDate(ts))
	ts = time.Date(2026, time.March, 22, 13, 0, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "March 22nd 2026, 12:00:00 pm", FormatDate(ts))
}

func TestCreateCommentAssemblesView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.comments.Create(ctx, f.bob, f.freet.ID, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "bob", v.Author)
	assert.Equal(t, f.bob.ID, v.AuthorID)
	assert.Equal(t, "hello", v.Content)
	assert.Equal(t, "first freet", v.Freet)
	assert.Empty(t, v.Emotion)
	assert.Equal(t, "October 17th 2026, 3:04:06 pm", v.DateCreated)
	assert.Equal(t, v.DateCreated, v.DateModified)
	assert.Equal(t, 1, f.created["Comment"])
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.comments.Create(ctx, f.bob, f.freet.ID, "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.comments.Create(ctx, model.User{}, f.freet.ID, "hello")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.comments.Create(ctx, f.bob, "missing", "hello")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "freet", nf.Kind)

	_, err = f.reactions.Create(ctx, f.bob, f.freet.ID, "meh")
	assert.ErrorAs(t, err, &verr)

	all, err := f.comments.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, f.created["Comment"])
}

func TestListByFreetReturnsExactSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := model.Freet{ID: "f2", AuthorID: f.bob.ID, Content: "second", DateCreated: time.Now(), DateModified: time.Now()}
	require.NoError(t, f.st.CreateFreet(ctx, &other))

	_, err := f.comments.Create(ctx, f.alice, "f1", "one")
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, f.bob, "f2", "two")
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, f.bob, "f1", "three")
	require.NoError(t, err)

	views, err := f.comments.ListByFreet(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "one", views[0].Content)
	assert.Equal(t, "three", views[1].Content)

	views, err = f.comments.ListByFreet(ctx, "f3")
	require.NoError(t, err)
	assert.Empty(t, views)

	byBob, err := f.comments.ListByAuthor(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, byBob, 2)

	_, err = f.comments.ListByAuthor(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReactionUpdateInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.reactions.Create(ctx, f.bob, f.freet.ID, model.EmotionLike)
	require.NoError(t, err)
	assert.Equal(t, "like", created.Emotion)

	_, err = f.reactions.Create(ctx, f.bob, f.freet.ID, model.EmotionSad)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	updated, err := f.reactions.UpdateOwn(ctx, f.bob, f.freet.ID, model.EmotionLove)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "love", updated.Emotion)
	assert.NotEqual(t, updated.DateCreated, updated.DateModified)

	views, err := f.reactions.ListByFreet(ctx, f.freet.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "love", views[0].Emotion)

	_, err = f.reactions.UpdateOwn(ctx, f.alice, f.freet.ID, model.EmotionWow)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Reaction", nf.Kind)
}

func TestReactionsOrderedByEmotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol := model.User{ID: "u-carol", Username: "carol", DateJoined: time.Now()}
	require.NoError(t, f.st.CreateUser(ctx, &carol))

	_, err := f.reactions.Create(ctx, f.alice, f.freet.ID, model.EmotionWow)
	require.NoError(t, err)
	_, err = f.reactions.Create(ctx, f.bob, f.freet.ID, model.EmotionAngry)
	require.NoError(t, err)
	_, err = f.reactions.Create(ctx, carol, f.freet.ID, model.EmotionLike)
	require.NoError(t, err)

	views, err := f.reactions.ListByFreet(ctx, f.freet.ID)
	require.NoError(t, err)
	var got []string
	for _, v := range views {
		got = append(got, v.Emotion)
	}
	assert.Equal(t, []string{"angry", "like", "wow"}, got)
}

func TestOwnershipLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.comments.Create(ctx, f.alice, f.freet.ID, "mine")
	require.NoError(t, err)
	r, err := f.reactions.Create(ctx, f.alice, f.freet.ID, model.EmotionHaha)
	require.NoError(t, err)

	assert.ErrorIs(t, f.comments.Delete(ctx, f.bob, c.ID), ErrForbidden)
	_, err = f.reactions.Update(ctx, f.bob, r.ID, model.EmotionSad)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.comments.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Content)
	gotR, err := f.reactions.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "haha", gotR.Emotion)
	assert.Equal(t, r.DateModified, gotR.DateModified)

	require.NoError(t, f.comments.Delete(ctx, f.alice, c.ID))
	_, err = f.comments.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// lateDelete removes the row before the service's own delete runs, as a
// concurrent request would.
type lateDelete struct {
	store.AttachmentStore[string]
}

func (l lateDelete) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := l.AttachmentStore.Delete(ctx, id); err != nil {
		return false, err
	}
	return l.AttachmentStore.Delete(ctx, id)
}

func TestDeleteReportsLostRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.comments.Create(ctx, f.alice, f.freet.ID, "going")
	require.NoError(t, err)

	racy := NewService(CommentKind, lateDelete{f.st.Comments()}, f.st, f.st)
	err = racy.Delete(ctx, f.alice, c.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Comment", nf.Kind)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteByAuthorIsSelectiveAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, u := range []model.User{f.alice, f.bob, f.alice} {
		_, err := f.comments.Create(ctx, u, f.freet.ID, "hi from "+u.Username)
		require.NoError(t, err)
	}

	require.NoError(t, f.comments.DeleteByAuthor(ctx, f.alice.ID))
	require.NoError(t, f.comments.DeleteByAuthor(ctx, f.alice.ID))

	left, err := f.comments.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "bob", left[0].Author)
}

func TestViewReflectsRenameAndDanglingParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.comments.Create(ctx, f.bob, f.freet.ID, "hello")
	require.NoError(t, err)
	require.NoError(t, f.st.RenameUser(ctx, f.bob.ID, "robert"))
	_, err = f.st.DeleteFreet(ctx, f.freet.ID)
	require.NoError(t, err)

	got, err := f.comments.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "robert", got.Author)
	assert.Empty(t, got.Freet)
}

func TestAssembleFailsOnMissingAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orphan := model.Comment{ID: "c-orphan", AuthorID: "ghost", FreetID: f.freet.ID, Payload: "boo", DateCreated: time.Now(), DateModified: time.Now()}
	require.NoError(t, f.st.Comments().Create(ctx, &orphan))

	_, err := f.comments.Get(ctx, orphan.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
