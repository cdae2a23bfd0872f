package httpapp

import (
	"net/http"

	"github.com/alphabot-ai/fritter/internal/attach"
)

// listAttachments serves every record, the records on ?freetId= or the
// records by ?author=. freetInQuery has already vetted the freet.
func listAttachments[P ~string](c *call, svc *attach.Service[P]) {
	ctx := c.r.Context()
	q := c.r.URL.Query()
	var (
		views []attach.View
		err   error
	)
	switch {
	case q.Has("freetId"):
		views, err = svc.ListByFreet(ctx, c.freet.ID)
	case q.Get("author") != "":
		views, err = svc.ListByAuthor(ctx, q.Get("author"))
	default:
		views, err = svc.List(ctx)
	}
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, views)
}

func getAttachment[P ~string](c *call, svc *attach.Service[P]) {
	view, err := svc.Get(c.r.Context(), c.entityID)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, view)
}

// handleListComments godoc
//
//	@Summary		List comments
//	@Description	All comments, the comments on one freet, or the comments by one user.
//	@Tags			Comments
//	@Produce		json
//	@Param			freetId	query		string	false	"Parent freet ID"
//	@Param			author	query		string	false	"Author username"
//	@Success		200		{array}		attach.View
//	@Failure		400		{object}	map[string]string	"Empty freet ID"
//	@Failure		404		{object}	map[string]interface{}	"Freet or author not found"
//	@Router			/api/comments [get]
func (s *Server) handleListComments(c *call) {
	listAttachments(c, s.comments)
}

// handleGetComment godoc
//
//	@Summary	Get a comment
//	@Tags		Comments
//	@Produce	json
//	@Param		commentId	path		string	true	"Comment ID"
//	@Success	200			{object}	attach.View
//	@Failure	404			{object}	map[string]interface{}	"Comment not found"
//	@Router		/api/comments/{commentId} [get]
func (s *Server) handleGetComment(c *call) {
	getAttachment(c, s.comments)
}

// handleCreateComment godoc
//
//	@Summary		Comment on a freet
//	@Description	Requires a session. Content must be 1 to 140 characters.
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		SessionCookie
//	@Param			freetId	path		string					true	"Freet ID"
//	@Param			comment	body		object{content=string}	true	"Comment"
//	@Success		201		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]string	"Empty content"
//	@Failure		403		{object}	map[string]string	"Not logged in"
//	@Failure		404		{object}	map[string]interface{}	"Freet not found"
//	@Failure		413		{object}	map[string]string	"Content too long"
//	@Router			/api/comments/{freetId} [post]
func (s *Server) handleCreateComment(c *call) {
	view, err := s.comments.Create(c.r.Context(), c.user, c.freet.ID, c.content)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusCreated, map[string]any{
		"message": "Your comment was created successfully.",
		"comment": view,
	})
}

// handleDeleteComment godoc
//
//	@Summary	Delete your comment
//	@Tags		Comments
//	@Produce	json
//	@Security	SessionCookie
//	@Param		commentId	path		string	true	"Comment ID"
//	@Success	200			{object}	map[string]string
//	@Failure	403			{object}	map[string]string	"Not logged in or not the author"
//	@Failure	404			{object}	map[string]interface{}	"Comment not found"
//	@Router		/api/comments/{commentId} [delete]
func (s *Server) handleDeleteComment(c *call) {
	if err := s.comments.Delete(c.r.Context(), c.user, c.entityID); err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string]string{"message": "Your comment was deleted successfully."})
}

// handleListReactions godoc
//
//	@Summary		List reactions
//	@Description	All reactions, the reactions on one freet (by emotion), or the reactions by one user.
//	@Tags			Reactions
//	@Produce		json
//	@Param			freetId	query		string	false	"Parent freet ID"
//	@Param			author	query		string	false	"Author username"
//	@Success		200		{array}		attach.View
//	@Failure		400		{object}	map[string]string	"Empty freet ID"
//	@Failure		404		{object}	map[string]interface{}	"Freet or author not found"
//	@Router			/api/reactions [get]
func (s *Server) handleListReactions(c *call) {
	listAttachments(c, s.reactions)
}

// handleGetReaction godoc
//
//	@Summary	Get a reaction
//	@Tags		Reactions
//	@Produce	json
//	@Param		reactionId	path		string	true	"Reaction ID"
//	@Success	200			{object}	attach.View
//	@Failure	404			{object}	map[string]interface{}	"Reaction not found"
//	@Router		/api/reactions/{reactionId} [get]
func (s *Server) handleGetReaction(c *call) {
	getAttachment(c, s.reactions)
}

// handleCreateReaction godoc
//
//	@Summary		React to a freet
//	@Description	One reaction per user per freet. Emotion is one of angry, haha, like, love, sad, wow.
//	@Tags			Reactions
//	@Accept			json
//	@Produce		json
//	@Security		SessionCookie
//	@Param			freetId		path		string					true	"Freet ID"
//	@Param			reaction	body		object{emotion=string}	true	"Reaction"
//	@Success		201			{object}	map[string]interface{}
//	@Failure		400			{object}	map[string]string	"Unknown emotion"
//	@Failure		403			{object}	map[string]string	"Not logged in"
//	@Failure		404			{object}	map[string]interface{}	"Freet not found"
//	@Failure		409			{object}	map[string]string	"Already reacted"
//	@Router			/api/reactions/{freetId} [post]
func (s *Server) handleCreateReaction(c *call) {
	view, err := s.reactions.Create(c.r.Context(), c.user, c.freet.ID, c.emotion)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusCreated, map[string]any{
		"message":  "Your reaction was created successfully.",
		"reaction": view,
	})
}

// handleUpdateReaction godoc
//
//	@Summary	Change your reaction to a freet
//	@Tags		Reactions
//	@Accept		json
//	@Produce	json
//	@Security	SessionCookie
//	@Param		freetId		path		string					true	"Freet ID"
//	@Param		reaction	body		object{emotion=string}	true	"Reaction"
//	@Success	201			{object}	map[string]interface{}
//	@Failure	400			{object}	map[string]string	"Unknown emotion"
//	@Failure	403			{object}	map[string]string	"Not logged in"
//	@Failure	404			{object}	map[string]interface{}	"Freet or reaction not found"
//	@Router		/api/reactions/{freetId} [put]
func (s *Server) handleUpdateReaction(c *call) {
	view, err := s.reactions.Update(c.r.Context(), c.user, c.entityID, c.emotion)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusCreated, map[string]any{
		"message":  "Your reaction was updated successfully.",
		"reaction": view,
	})
}

// handleDeleteReaction godoc
//
//	@Summary	Remove your reaction from a freet
//	@Tags		Reactions
//	@Produce	json
//	@Security	SessionCookie
//	@Param		freetId	path		string	true	"Freet ID"
//	@Success	200		{object}	map[string]string
//	@Failure	403		{object}	map[string]string	"Not logged in"
//	@Failure	404		{object}	map[string]interface{}	"Freet or reaction not found"
//	@Router		/api/reactions/{freetId} [delete]
func (s *Server) handleDeleteReaction(c *call) {
	if err := s.reactions.Delete(c.r.Context(), c.user, c.entityID); err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string]string{"message": "Your reaction was deleted successfully."})
}
