package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListCharacters handles GET /api/characters.
func (h *Handler) ListCharacters(c *gin.Context) {
	recs, err := h.sessions.ListCharacters(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": recs})
}

type createCharacterRequest struct {
	Name   string `json:"name"`
	RaceID string `json:"race_id" binding:"required"`
}

// CreateCharacter handles POST /api/characters.
func (h *Handler) CreateCharacter(c *gin.Context) {
	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	rec, err := h.sessions.CreateCharacter(c.Request.Context(), req.Name, req.RaceID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GetCharacter handles GET /api/characters/:id.
func (h *Handler) GetCharacter(c *gin.Context) {
	rec, err := h.sessions.GetCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteCharacter handles DELETE /api/characters/:id.
func (h *Handler) DeleteCharacter(c *gin.Context) {
	if err := h.sessions.DeleteCharacter(c.Request.Context(), c.Param("id")); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
