// Package client provides a Go client for the Fritter API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a Fritter API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	TokenExp   time.Time
}

// New creates a new Fritter client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Body)
}

// User represents an account from the API.
type User struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	DateJoined string `json:"dateJoined"`
}

// Freet represents a freet from the API.
type Freet struct {
	ID           string `json:"_id"`
	Author       string `json:"author"`
	AuthorID     string `json:"authorId"`
	Content      string `json:"content"`
	DateCreated  string `json:"dateCreated"`
	DateModified string `json:"dateModified"`
}

// Attachment represents a comment or a reaction from the API.
type Attachment struct {
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

// Follows lists usernames on both sides of a user's follow relationships.
type Follows struct {
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

// IsAuthenticated returns true if the client has a valid token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != "" && time.Now().Before(c.TokenExp)
}

// doRequest performs an authenticated HTTP request.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

// call sends the request and decodes a 2xx body into out, if out is set.
func (c *Client) call(method, path string, body, out any) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Register creates a new account on the server.
func (c *Client) Register(username, password string) (*User, error) {
	var result struct {
		User User `json:"user"`
	}
	err := c.call(http.MethodPost, "/api/users", map[string]string{"username": username, "password": password}, &result)
	if err != nil {
		return nil, err
	}
	return &result.User, nil
}

// Login opens a session and keeps its token for later requests.
func (c *Client) Login(username, password string) (*User, error) {
	resp, err := c.doRequest(http.MethodPost, "/api/users/session", map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	var result struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	c.Token = result.Token
	c.TokenExp = time.Now().Add(24 * time.Hour)
	for _, cookie := range resp.Cookies() {
		if cookie.Value == result.Token && !cookie.Expires.IsZero() {
			c.TokenExp = cookie.Expires
		}
	}
	return &result.User, nil
}

// Logout ends the current session.
func (c *Client) Logout() error {
	if err := c.call(http.MethodDelete, "/api/users/session", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	c.TokenExp = time.Time{}
	return nil
}

// PostFreet creates a new freet.
func (c *Client) PostFreet(content string) (*Freet, error) {
	var result struct {
		Freet Freet `json:"freet"`
	}
	if err := c.call(http.MethodPost, "/api/freets", map[string]string{"content": content}, &result); err != nil {
		return nil, err
	}
	return &result.Freet, nil
}

// Freets lists freets, optionally only those by author.
func (c *Client) Freets(author string) ([]Freet, error) {
	path := "/api/freets"
	if author != "" {
		path += "?author=" + url.QueryEscape(author)
	}
	var freets []Freet
	if err := c.call(http.MethodGet, path, nil, &freets); err != nil {
		return nil, err
	}
	return freets, nil
}

// PostComment comments on a freet.
func (c *Client) PostComment(freetID, content string) (*Attachment, error) {
	var result struct {
		Comment Attachment `json:"comment"`
	}
	if err := c.call(http.MethodPost, "/api/comments/"+url.PathEscape(freetID), map[string]string{"content": content}, &result); err != nil {
		return nil, err
	}
	return &result.Comment, nil
}

// DeleteComment deletes one of your comments.
func (c *Client) DeleteComment(commentID string) error {
	return c.call(http.MethodDelete, "/api/comments/"+url.PathEscape(commentID), nil, nil)
}

// Comments lists the comments on freetID, or every comment when freetID is empty.
func (c *Client) Comments(freetID string) ([]Attachment, error) {
	return c.listAttachments("/api/comments", freetID)
}

// React adds your reaction to a freet.
func (c *Client) React(freetID, emotion string) (*Attachment, error) {
	return c.sendReaction(http.MethodPost, freetID, emotion)
}

// UpdateReaction changes your existing reaction to a freet.
func (c *Client) UpdateReaction(freetID, emotion string) (*Attachment, error) {
	return c.sendReaction(http.MethodPut, freetID, emotion)
}

// RemoveReaction deletes your reaction to a freet.
func (c *Client) RemoveReaction(freetID string) error {
	return c.call(http.MethodDelete, "/api/reactions/"+url.PathEscape(freetID), nil, nil)
}

// Reactions lists the reactions on freetID, or every reaction when freetID is empty.
func (c *Client) Reactions(freetID string) ([]Attachment, error) {
	return c.listAttachments("/api/reactions", freetID)
}

// Follow starts following username.
func (c *Client) Follow(username string) error {
	return c.call(http.MethodPut, "/api/follows/"+url.PathEscape(username), nil, nil)
}

// Follows returns who username follows and is followed by.
func (c *Client) Follows(username string) (*Follows, error) {
	var follows Follows
	if err := c.call(http.MethodGet, "/api/follows?username="+url.QueryEscape(username), nil, &follows); err != nil {
		return nil, err
	}
	return &follows, nil
}

func (c *Client) sendReaction(method, freetID, emotion string) (*Attachment, error) {
	var result struct {
		Reaction Attachment `json:"reaction"`
	}
	if err := c.call(method, "/api/reactions/"+url.PathEscape(freetID), map[string]string{"emotion": emotion}, &result); err != nil {
		return nil, err
	}
	return &result.Reaction, nil
}

func (c *Client) listAttachments(path, freetID string) ([]Attachment, error) {
	if freetID != "" {
		path += "?freetId=" + url.QueryEscape(freetID)
	}
	var items []Attachment
	if err := c.call(http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

// NewTestHelper creates a new test helper for the given base URL.
func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers an account with the given name and
// returns a client signed in as it.
func (h *TestHelper) CreateAuthenticatedClient(name string) (*Client, error) {
	c := New(h.BaseURL)
	password := "pw-" + name
	if _, err := c.Register(name, password); err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}
	if _, err := c.Login(name, password); err != nil {
		return nil, fmt.Errorf("login %s: %w", name, err)
	}
	return c, nil
}

// GetToken creates an account and returns its session token.
func (h *TestHelper) GetToken(name string) (string, error) {
	c, err := h.CreateAuthenticatedClient(name)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
