package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// current resolves the active session or aborts the request.
func (h *Handler) current(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Current()
	if err != nil {
		h.abort(c, err)
		return nil, false
	}
	return s, true
}

type startSessionRequest struct {
	CharacterID string `json:"character_id" binding:"required"`
}

// StartSession handles POST /api/session.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	s, err := h.sessions.Start(c.Request.Context(), req.CharacterID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.View())
}

// GetSession handles GET /api/session.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// EndSession handles DELETE /api/session.
func (h *Handler) EndSession(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context()); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type selectLocationRequest struct {
	LocationID string `json:"location_id" binding:"required"`
}

// SelectLocation handles POST /api/session/location.
func (h *Handler) SelectLocation(c *gin.Context) {
	var req selectLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	s, ok := h.current(c)
	if !ok {
		return
	}
	if _, err := s.SelectLocation(req.LocationID); err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// FindEnemy handles POST /api/session/enemy.
func (h *Handler) FindEnemy(c *gin.Context) {
	s, ok := h.current(c)
	if !ok {
		return
	}
	m, err := s.FindEnemy(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enemy": m})
}

// Flee handles POST /api/session/flee.
func (h *Handler) Flee(c *gin.Context) {
	s, ok := h.current(c)
	if !ok {
		return
	}
	s.Flee()
	c.JSON(http.StatusOK, s.View())
}

// Attack handles POST /api/session/attack.
func (h *Handler) Attack(c *gin.Context) {
	s, ok := h.current(c)
	if !ok {
		return
	}
	ex, err := s.Attack(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, ex)
}

type allocateRequest struct {
	Stat string `json:"stat" binding:"required"`
}

// AllocateStatPoint handles POST /api/session/stats.
func (h *Handler) AllocateStatPoint(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	kind, err := progression.ParseStatKind(req.Stat)
	if err != nil {
		h.abort(c, err)
		return
	}
	s, ok := h.current(c)
	if !ok {
		return
	}
	gain, rec, err := s.AllocateStatPoint(c.Request.Context(), kind)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gain": gain, "character": rec})
}

// Restore handles POST /api/session/restore.
func (h *Handler) Restore(c *gin.Context) {
	s, ok := h.current(c)
	if !ok {
		return
	}
	rec, err := s.Restore(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": rec})
}
