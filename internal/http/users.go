package httpapp

import (
	"net/http"

	"github.com/alphabot-ai/fritter/internal/social"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleCreateUser godoc
//
//	@Summary	Create an account
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		user	body		object{username=string,password=string}	true	"Credentials"
//	@Success	201		{object}	map[string]interface{}
//	@Failure	400		{object}	map[string]string	"Invalid username or password"
//	@Failure	409		{object}	map[string]string	"Username taken"
//	@Router		/api/users [post]
func (s *Server) handleCreateUser(c *call) {
	var req credentials
	if !decodeBody(c, &req) {
		return
	}
	user, err := s.auth.Register(c.r.Context(), req.Username, req.Password)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusCreated, map[string]any{
		"message": "Your account was created successfully. You may now sign in.",
		"user":    social.NewUserView(user),
	})
}

// handleRenameUser godoc
//
//	@Summary		Change your username
//	@Description	Existing comments and reactions show the new name immediately.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		SessionCookie
//	@Param			user	body		object{username=string}	true	"New username"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]string	"Invalid username"
//	@Failure		403		{object}	map[string]string	"Not logged in"
//	@Failure		409		{object}	map[string]string	"Username taken"
//	@Router			/api/users [put]
func (s *Server) handleRenameUser(c *call) {
	var req struct {
		Username string `json:"username"`
	}
	if !decodeBody(c, &req) {
		return
	}
	user, err := s.users.Rename(c.r.Context(), c.user, req.Username)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string]any{
		"message": "Your username was updated successfully.",
		"user":    social.NewUserView(user),
	})
}

// handleDeleteUser godoc
//
//	@Summary		Delete your account
//	@Description	Removes your comments, reactions, freets, follows and sessions.
//	@Tags			Users
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{object}	map[string]string
//	@Failure		403	{object}	map[string]string	"Not logged in"
//	@Router			/api/users [delete]
func (s *Server) handleDeleteUser(c *call) {
	if err := s.users.Delete(c.r.Context(), c.user); err != nil {
		c.fail(err)
		return
	}
	s.clearSessionCookie(c.w)
	writeJSON(c.w, http.StatusOK, map[string]string{"message": "Your account has been deleted successfully."})
}

// handleSignIn godoc
//
//	@Summary		Sign in
//	@Description	Sets the session cookie and also returns the token for bearer use.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			user	body		object{username=string,password=string}	true	"Credentials"
//	@Success		201		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]string	"Malformed body"
//	@Failure		401		{object}	map[string]string	"Wrong username or password"
//	@Router			/api/users/session [post]
func (s *Server) handleSignIn(c *call) {
	var req credentials
	if !decodeBody(c, &req) {
		return
	}
	session, user, err := s.auth.Login(c.r.Context(), req.Username, req.Password)
	if err != nil {
		c.fail(err)
		return
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(c.w, http.StatusCreated, map[string]any{
		"message": "You have signed in successfully.",
		"user":    social.NewUserView(user),
		"token":   session.Token,
	})
}

// handleSignOut godoc
//
//	@Summary	Sign out
//	@Tags		Users
//	@Produce	json
//	@Security	SessionCookie
//	@Success	200	{object}	map[string]string
//	@Failure	403	{object}	map[string]string	"Not logged in"
//	@Router		/api/users/session [delete]
func (s *Server) handleSignOut(c *call) {
	if err := s.auth.Logout(c.r.Context(), c.token); err != nil {
		c.fail(err)
		return
	}
	s.clearSessionCookie(c.w)
	writeJSON(c.w, http.StatusOK, map[string]string{"message": "You have signed out successfully."})
}

// handleListFollows godoc
//
//	@Summary	List who a user follows and is followed by
//	@Tags		Follows
//	@Produce	json
//	@Param		username	query		string	true	"Username"
//	@Success	200			{object}	map[string][]string
//	@Failure	400			{object}	map[string]string	"Missing username"
//	@Failure	404			{object}	map[string]interface{}	"User not found"
//	@Router		/api/follows [get]
func (s *Server) handleListFollows(c *call) {
	username := c.r.URL.Query().Get("username")
	if username == "" {
		writeError(c.w, http.StatusBadRequest, errMissingUsername)
		return
	}
	follows, err := s.users.Follows(c.r.Context(), username)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string][]string{
		"followers": follows.Followers,
		"following": follows.Following,
	})
}

// handleFollow godoc
//
//	@Summary	Follow a user
//	@Tags		Follows
//	@Produce	json
//	@Security	SessionCookie
//	@Param		username	path		string	true	"Username to follow"
//	@Success	200			{object}	map[string]string
//	@Failure	400			{object}	map[string]string	"Cannot follow yourself"
//	@Failure	403			{object}	map[string]string	"Not logged in"
//	@Failure	404			{object}	map[string]interface{}	"User not found"
//	@Router		/api/follows/{username} [put]
func (s *Server) handleFollow(c *call) {
	if err := s.users.Follow(c.r.Context(), c.user, c.target.Username); err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string]string{"message": "You are now following " + c.target.Username + "."})
}

// handleUnfollow godoc
//
//	@Summary	Unfollow a user
//	@Tags		Follows
//	@Produce	json
//	@Security	SessionCookie
//	@Param		username	path		string	true	"Username to unfollow"
//	@Success	200			{object}	map[string]string
//	@Failure	403			{object}	map[string]string	"Not logged in"
//	@Failure	404			{object}	map[string]interface{}	"User not found or not followed"
//	@Router		/api/follows/{username} [delete]
func (s *Server) handleUnfollow(c *call) {
	if err := s.users.Unfollow(c.r.Context(), c.user, c.target.Username); err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string]string{"message": "You are no longer following " + c.target.Username + "."})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
