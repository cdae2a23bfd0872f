package httpapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alphabot-ai/fritter/internal/auth"
	"github.com/alphabot-ai/fritter/internal/client"
	"github.com/alphabot-ai/fritter/internal/config"
	"github.com/alphabot-ai/fritter/internal/metrics"
	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
	"github.com/alphabot-ai/fritter/internal/store/sqlite"
)

type testClient struct {
	server *httptest.Server
	client *http.Client
	store  *sqlite.Store
}

func testConfig() config.Config {
	return config.Config{
		SessionTTL:    time.Hour,
		SessionCookie: "fritter_session",
		BcryptCost:    bcrypt.MinCost,
		Log:           config.Log{Level: "error", Format: "text"},
	}
}

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	dsnName := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func newServer(st store.Store, cfg config.Config) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	authSvc := auth.NewService(st, cfg.SessionTTL, cfg.BcryptCost)
	return NewServer(st, authSvc, cfg, logger, metrics.New())
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	st := openTestStore(t)
	ts := httptest.NewServer(newServer(st, testConfig()))
	t.Cleanup(func() {
		ts.Close()
		_ = st.Close()
	})
	return &testClient{server: ts, client: ts.Client(), store: st}
}

func (c *testClient) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response, out *T) {
	t.Helper()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("json decode: %v (body %s)", err, string(body))
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) map[string]any {
	t.Helper()
	var body map[string]any
	decodeJSON(t, resp, &body)
	require.Equal(t, want, resp.StatusCode, "body: %v", body)
	return body
}

// signIn creates an account and returns a client signed in as it.
func signIn(t *testing.T, tc *testClient, name string) *client.Client {
	t.Helper()
	c, err := client.NewTestHelper(tc.server.URL).CreateAuthenticatedClient(name)
	if err != nil {
		t.Fatalf("create test account: %v", err)
	}
	return c
}

func postFreet(t *testing.T, c *client.Client, content string) string {
	t.Helper()
	f, err := c.PostFreet(content)
	require.NoError(t, err)
	return f.ID
}

func TestCommentOnFreet(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	freetID := postFreet(t, u1, "parent freet")

	resp := tc.do(t, http.MethodPost, "/api/comments/"+freetID, u1.Token, map[string]string{"content": "hello"})
	body := expectStatus(t, resp, http.StatusCreated)
	comment := body["comment"].(map[string]any)
	assert.Equal(t, "u1", comment["author"])
	assert.Equal(t, "hello", comment["content"])
	assert.Equal(t, freetID, comment["freetId"])
	assert.Equal(t, "parent freet", comment["freet"])
	assert.NotEmpty(t, comment["_id"])
	assert.NotEmpty(t, body["message"])
}

func TestWhitespaceCommentRejected(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	freetID := postFreet(t, u1, "parent")

	resp := tc.do(t, http.MethodPost, "/api/comments/"+freetID, u1.Token, map[string]string{"content": "   "})
	expectStatus(t, resp, http.StatusBadRequest)

	comments, err := u1.Comments(freetID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentLengthBoundary(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	freetID := postFreet(t, u1, "parent")

	resp := tc.do(t, http.MethodPost, "/api/comments/"+freetID, u1.Token, map[string]string{"content": strings.Repeat("x", 140)})
	expectStatus(t, resp, http.StatusCreated)

	resp = tc.do(t, http.MethodPost, "/api/comments/"+freetID, u1.Token, map[string]string{"content": strings.Repeat("x", 141)})
	expectStatus(t, resp, http.StatusRequestEntityTooLarge)

	resp = tc.do(t, http.MethodPost, "/api/freets", u1.Token, map[string]string{"content": strings.Repeat("x", 141)})
	expectStatus(t, resp, http.StatusRequestEntityTooLarge)
}

func TestRegisterPasswordTooLong(t *testing.T) {
	tc := newTestClient(t)

	resp := tc.do(t, http.MethodPost, "/api/users", "", map[string]string{"username": "longpw", "password": strings.Repeat("x", 73)})
	body := expectStatus(t, resp, http.StatusBadRequest)
	assert.Contains(t, body["error"], "72 bytes")

	resp = tc.do(t, http.MethodPost, "/api/users", "", map[string]string{"username": "longpw", "password": strings.Repeat("x", 72)})
	expectStatus(t, resp, http.StatusCreated)
}

func TestReactionUpdatedInPlace(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	freetID := postFreet(t, u1, "react to me")

	resp := tc.do(t, http.MethodPost, "/api/reactions/"+freetID, u1.Token, map[string]string{"emotion": "like"})
	expectStatus(t, resp, http.StatusCreated)

	resp = tc.do(t, http.MethodPut, "/api/reactions/"+freetID, u1.Token, map[string]string{"emotion": "love"})
	body := expectStatus(t, resp, http.StatusCreated)
	assert.Equal(t, "love", body["reaction"].(map[string]any)["emotion"])

	var reactions []map[string]any
	decodeJSON(t, tc.do(t, http.MethodGet, "/api/reactions?freetId="+freetID, "", nil), &reactions)
	require.Len(t, reactions, 1)
	assert.Equal(t, "love", reactions[0]["emotion"])
	assert.Equal(t, "u1", reactions[0]["author"])
}

func TestListCommentsForMissingFreet(t *testing.T) {
	tc := newTestClient(t)

	resp := tc.do(t, http.MethodGet, "/api/comments?freetId=F9", "", nil)
	body := expectStatus(t, resp, http.StatusNotFound)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "error should be an object: %v", body)
	assert.Contains(t, errBody["CommentNotFound"], "F9")

	resp = tc.do(t, http.MethodGet, "/api/reactions?freetId=F9", "", nil)
	body = expectStatus(t, resp, http.StatusNotFound)
	assert.Contains(t, body["error"], "ReactionNotFound")
}

func TestEmptyFreetIDQuery(t *testing.T) {
	tc := newTestClient(t)
	expectStatus(t, tc.do(t, http.MethodGet, "/api/comments?freetId=", "", nil), http.StatusBadRequest)
	expectStatus(t, tc.do(t, http.MethodGet, "/api/reactions?freetId=", "", nil), http.StatusBadRequest)
}

func TestListAllAndByAuthor(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	u2 := signIn(t, tc, "u2")
	f1 := postFreet(t, u1, "one")
	f2 := postFreet(t, u2, "two")

	_, err := u1.PostComment(f1, "a")
	require.NoError(t, err)
	_, err = u2.PostComment(f2, "b")
	require.NoError(t, err)
	_, err = u2.PostComment(f1, "c")
	require.NoError(t, err)

	all, err := u1.Comments("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onF1, err := u1.Comments(f1)
	require.NoError(t, err)
	require.Len(t, onF1, 2)
	for _, c := range onF1 {
		assert.Equal(t, f1, c.FreetID)
	}

	var byU2 []map[string]any
	decodeJSON(t, tc.do(t, http.MethodGet, "/api/comments?author=u2", "", nil), &byU2)
	assert.Len(t, byU2, 2)

	expectStatus(t, tc.do(t, http.MethodGet, "/api/comments?author=ghost", "", nil), http.StatusNotFound)
}

func TestWritesRequireSession(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	freetID := postFreet(t, u1, "parent")

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/comments/" + freetID, map[string]string{"content": "hi"}},
		{http.MethodPost, "/api/reactions/" + freetID, map[string]string{"emotion": "like"}},
		{http.MethodPut, "/api/reactions/" + freetID, map[string]string{"emotion": "like"}},
		{http.MethodPost, "/api/freets", map[string]string{"content": "hi"}},
		{http.MethodDelete, "/api/users", nil},
	}
	for _, tt := range cases {
		resp := tc.do(t, tt.method, tt.path, "", tt.body)
		expectStatus(t, resp, http.StatusForbidden)
	}

	resp := tc.do(t, http.MethodPost, "/api/comments/"+freetID, "not-a-token", map[string]string{"content": "hi"})
	expectStatus(t, resp, http.StatusForbidden)
}

func TestMissingParentOnWrite(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")

	resp := tc.do(t, http.MethodPost, "/api/comments/nope", u1.Token, map[string]string{"content": "hi"})
	body := expectStatus(t, resp, http.StatusNotFound)
	assert.Contains(t, body["error"], "freetNotFound")

	resp = tc.do(t, http.MethodPost, "/api/reactions/nope", u1.Token, map[string]string{"emotion": "like"})
	expectStatus(t, resp, http.StatusNotFound)
}

func TestReactionRules(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	u2 := signIn(t, tc, "u2")
	freetID := postFreet(t, u1, "parent")

	expectStatus(t, tc.do(t, http.MethodPost, "/api/reactions/"+freetID, u2.Token, map[string]string{"emotion": "meh"}), http.StatusBadRequest)

	_, err := u2.React(freetID, "sad")
	require.NoError(t, err)
	_, err = u2.React(freetID, "haha")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	// u1 has no reaction to update or remove.
	expectStatus(t, tc.do(t, http.MethodPut, "/api/reactions/"+freetID, u1.Token, map[string]string{"emotion": "wow"}), http.StatusNotFound)
	expectStatus(t, tc.do(t, http.MethodDelete, "/api/reactions/"+freetID, u1.Token, nil), http.StatusNotFound)

	require.NoError(t, u2.RemoveReaction(freetID))
	reactions, err := u1.Reactions(freetID)
	require.NoError(t, err)
	assert.Empty(t, reactions)
}

func TestCommentDeleteOwnership(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	u2 := signIn(t, tc, "u2")
	freetID := postFreet(t, u1, "parent")

	comment, err := u1.PostComment(freetID, "mine")
	require.NoError(t, err)

	expectStatus(t, tc.do(t, http.MethodDelete, "/api/comments/"+comment.ID, u2.Token, nil), http.StatusForbidden)
	var got map[string]any
	decodeJSON(t, tc.do(t, http.MethodGet, "/api/comments/"+comment.ID, "", nil), &got)
	assert.Equal(t, "mine", got["content"])

	require.NoError(t, u1.DeleteComment(comment.ID))
	resp := tc.do(t, http.MethodGet, "/api/comments/"+comment.ID, "", nil)
	body := expectStatus(t, resp, http.StatusNotFound)
	assert.Contains(t, body["error"], "CommentNotFound")
}

func TestFreetOwnershipAndDanglingParent(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	u2 := signIn(t, tc, "u2")
	freetID := postFreet(t, u1, "parent")
	_, err := u2.PostComment(freetID, "reply")
	require.NoError(t, err)

	expectStatus(t, tc.do(t, http.MethodPut, "/api/freets/"+freetID, u2.Token, map[string]string{"content": "hijack"}), http.StatusForbidden)
	expectStatus(t, tc.do(t, http.MethodPut, "/api/freets/"+freetID, u1.Token, map[string]string{"content": "edited"}), http.StatusOK)
	expectStatus(t, tc.do(t, http.MethodDelete, "/api/freets/"+freetID, u1.Token, nil), http.StatusOK)

	comments, err := u2.Comments("")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Empty(t, comments[0].Freet)
}

func TestRenameShowsInViews(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	freetID := postFreet(t, u1, "parent")
	_, err := u1.PostComment(freetID, "hi")
	require.NoError(t, err)

	expectStatus(t, tc.do(t, http.MethodPut, "/api/users", u1.Token, map[string]string{"username": "renamed"}), http.StatusOK)

	comments, err := u1.Comments(freetID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "renamed", comments[0].Author)
}

func TestDeleteAccountCascades(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	u2 := signIn(t, tc, "u2")
	f1 := postFreet(t, u1, "u1 freet")
	f2 := postFreet(t, u2, "u2 freet")

	_, err := u1.PostComment(f2, "from u1")
	require.NoError(t, err)
	_, err = u1.React(f2, "love")
	require.NoError(t, err)
	_, err = u2.PostComment(f1, "from u2")
	require.NoError(t, err)
	require.NoError(t, u1.Follow("u2"))

	expectStatus(t, tc.do(t, http.MethodDelete, "/api/users", u1.Token, nil), http.StatusOK)

	comments, err := u2.Comments("")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "u2", comments[0].Author)

	reactions, err := u2.Reactions("")
	require.NoError(t, err)
	assert.Empty(t, reactions)

	follows, err := u2.Follows("u2")
	require.NoError(t, err)
	assert.Empty(t, follows.Followers)

	// The deleted session no longer authenticates.
	expectStatus(t, tc.do(t, http.MethodPost, "/api/freets", u1.Token, map[string]string{"content": "ghost"}), http.StatusForbidden)
}

func TestSessionLifecycle(t *testing.T) {
	tc := newTestClient(t)

	expectStatus(t, tc.do(t, http.MethodPost, "/api/users", "", map[string]string{"username": "alice", "password": "pw"}), http.StatusCreated)
	expectStatus(t, tc.do(t, http.MethodPost, "/api/users", "", map[string]string{"username": "alice", "password": "pw"}), http.StatusConflict)
	expectStatus(t, tc.do(t, http.MethodPost, "/api/users/session", "", map[string]string{"username": "alice", "password": "bad"}), http.StatusUnauthorized)
	expectStatus(t, tc.do(t, http.MethodPost, "/api/users/session", "", map[string]string{"user": "alice"}), http.StatusBadRequest)

	resp := tc.do(t, http.MethodPost, "/api/users/session", "", map[string]string{"username": "alice", "password": "pw"})
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "fritter_session" {
			cookie = c
		}
	}
	body := expectStatus(t, resp, http.StatusCreated)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, body["token"], cookie.Value)

	// The cookie alone authenticates.
	req, err := http.NewRequest(http.MethodPost, tc.server.URL+"/api/freets", strings.NewReader(`{"content":"via cookie"}`))
	require.NoError(t, err)
	req.AddCookie(cookie)
	cookieResp, err := tc.client.Do(req)
	require.NoError(t, err)
	expectStatus(t, cookieResp, http.StatusCreated)

	token := body["token"].(string)
	expectStatus(t, tc.do(t, http.MethodDelete, "/api/users/session", token, nil), http.StatusOK)
	expectStatus(t, tc.do(t, http.MethodDelete, "/api/users/session", token, nil), http.StatusForbidden)
}

func TestFollows(t *testing.T) {
	tc := newTestClient(t)
	u1 := signIn(t, tc, "u1")
	signIn(t, tc, "u2")

	require.NoError(t, u1.Follow("u2"))
	expectStatus(t, tc.do(t, http.MethodPut, "/api/follows/u1", u1.Token, nil), http.StatusBadRequest)
	expectStatus(t, tc.do(t, http.MethodPut, "/api/follows/ghost", u1.Token, nil), http.StatusNotFound)
	expectStatus(t, tc.do(t, http.MethodGet, "/api/follows", "", nil), http.StatusBadRequest)

	follows, err := u1.Follows("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, follows.Following)

	expectStatus(t, tc.do(t, http.MethodDelete, "/api/follows/u2", u1.Token, nil), http.StatusOK)
	expectStatus(t, tc.do(t, http.MethodDelete, "/api/follows/u2", u1.Token, nil), http.StatusNotFound)
}

func TestRoutingFallbacks(t *testing.T) {
	tc := newTestClient(t)
	expectStatus(t, tc.do(t, http.MethodGet, "/api/nothing-here", "", nil), http.StatusNotFound)
	expectStatus(t, tc.do(t, http.MethodPatch, "/api/comments", "", nil), http.StatusMethodNotAllowed)
	expectStatus(t, tc.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)
}

func TestDocsAndMetrics(t *testing.T) {
	tc := newTestClient(t)

	var doc map[string]any
	decodeJSON(t, tc.do(t, http.MethodGet, "/api/openapi.json", "", nil), &doc)
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/api/reactions/{freetId}")

	resp := tc.do(t, http.MethodGet, "/api/openapi.yaml", "", nil)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(raw), "openapi: 3.0.3")

	u1 := signIn(t, tc, "u1")
	_, err := u1.PostComment(postFreet(t, u1, "x"), "y")
	require.NoError(t, err)

	resp = tc.do(t, http.MethodGet, "/metrics", "", nil)
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(raw), `fritter_attachments_created_total{kind="Comment"} 1`)
	assert.Contains(t, string(raw), `route="/api/comments/{freetId}"`)
}

type failingComments struct {
	store.AttachmentStore[string]
}

func (failingComments) List(ctx context.Context) ([]model.Comment, error) {
	return nil, errors.New("database is locked")
}

type failingStore struct {
	*sqlite.Store
}

func (s failingStore) Comments() store.AttachmentStore[string] {
	return failingComments{s.Store.Comments()}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	st := openTestStore(t)
	defer st.Close()
	srv := newServer(failingStore{st}, testConfig())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/comments", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, rec.Body.String(), "locked")
}
