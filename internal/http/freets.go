package httpapp

import (
	"net/http"

	"github.com/alphabot-ai/fritter/internal/social"
)

// handleListFreets godoc
//
//	@Summary	List freets
//	@Tags		Freets
//	@Produce	json
//	@Param		author	query		string	false	"Author username"
//	@Success	200		{array}		social.FreetView
//	@Failure	404		{object}	map[string]interface{}	"Author not found"
//	@Router		/api/freets [get]
func (s *Server) handleListFreets(c *call) {
	var (
		views []social.FreetView
		err   error
	)
	if author := c.r.URL.Query().Get("author"); author != "" {
		views, err = s.freets.ListByAuthor(c.r.Context(), author)
	} else {
		views, err = s.freets.List(c.r.Context())
	}
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, views)
}

// handleCreateFreet godoc
//
//	@Summary	Post a freet
//	@Tags		Freets
//	@Accept		json
//	@Produce	json
//	@Security	SessionCookie
//	@Param		freet	body		object{content=string}	true	"Freet"
//	@Success	201		{object}	map[string]interface{}
//	@Failure	400		{object}	map[string]string	"Empty content"
//	@Failure	403		{object}	map[string]string	"Not logged in"
//	@Failure	413		{object}	map[string]string	"Content too long"
//	@Router		/api/freets [post]
func (s *Server) handleCreateFreet(c *call) {
	view, err := s.freets.Create(c.r.Context(), c.user, c.content)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusCreated, map[string]any{
		"message": "Your freet was created successfully.",
		"freet":   view,
	})
}

// handleUpdateFreet godoc
//
//	@Summary	Edit your freet
//	@Tags		Freets
//	@Accept		json
//	@Produce	json
//	@Security	SessionCookie
//	@Param		freetId	path		string					true	"Freet ID"
//	@Param		freet	body		object{content=string}	true	"Freet"
//	@Success	200		{object}	map[string]interface{}
//	@Failure	400		{object}	map[string]string	"Empty content"
//	@Failure	403		{object}	map[string]string	"Not logged in or not the author"
//	@Failure	404		{object}	map[string]interface{}	"Freet not found"
//	@Failure	413		{object}	map[string]string	"Content too long"
//	@Router		/api/freets/{freetId} [put]
func (s *Server) handleUpdateFreet(c *call) {
	view, err := s.freets.Update(c.r.Context(), c.user, c.freet.ID, c.content)
	if err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string]any{
		"message": "Your freet was updated successfully.",
		"freet":   view,
	})
}

// handleDeleteFreet godoc
//
//	@Summary		Delete your freet
//	@Description	Comments and reactions on the freet are kept.
//	@Tags			Freets
//	@Produce		json
//	@Security		SessionCookie
//	@Param			freetId	path		string	true	"Freet ID"
//	@Success		200		{object}	map[string]string
//	@Failure		403		{object}	map[string]string	"Not logged in or not the author"
//	@Failure		404		{object}	map[string]interface{}	"Freet not found"
//	@Router			/api/freets/{freetId} [delete]
func (s *Server) handleDeleteFreet(c *call) {
	if err := s.freets.Delete(c.r.Context(), c.user, c.freet.ID); err != nil {
		c.fail(err)
		return
	}
	writeJSON(c.w, http.StatusOK, map[string]string{"message": "Your freet was deleted successfully."})
}
