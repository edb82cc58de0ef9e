package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/game/shop"
	"github.com/cory-johannsen/arena/internal/storage"
)

const (
	codeBadRequest = "bad_request"
	codeInternal   = "internal_error"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{storage.ErrCharacterNotFound, http.StatusNotFound, "character_not_found"},
	{session.ErrUnknownLocation, http.StatusNotFound, "unknown_location"},
	{session.ErrUnknownRace, http.StatusNotFound, "unknown_race"},
	{shop.ErrUnknownItem, http.StatusNotFound, "unknown_item"},
	{session.ErrNoActiveSession, http.StatusConflict, "no_active_session"},
	{session.ErrLocationLocked, http.StatusConflict, "location_locked"},
	{character.ErrRaceLocked, http.StatusConflict, "race_locked"},
	{shop.ErrAlreadyPurchased, http.StatusConflict, "already_purchased"},
	{storage.ErrInsufficientCurrency, http.StatusConflict, "insufficient_currency"},
	{combat.ErrNoLocationSelected, http.StatusConflict, "no_location_selected"},
	{combat.ErrNoMonstersInLocation, http.StatusConflict, "no_monsters_in_location"},
	{combat.ErrNoEnemy, http.StatusConflict, "no_enemy"},
	{combat.ErrCharacterIncapacitated, http.StatusConflict, "character_incapacitated"},
	{progression.ErrNoPointsAvailable, http.StatusConflict, "no_points_available"},
	{progression.ErrInvalidStatKind, http.StatusUnprocessableEntity, "invalid_stat_kind"},
	{character.ErrInvalidName, http.StatusUnprocessableEntity, "invalid_name"},
}

// classify returns the status and wire code for err.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, codeInternal
}

// abort writes err as {"error": code}. Unmapped errors are logged and reported as internal.
func (h *Handler) abort(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", traceIDOf(c)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

func badRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": codeBadRequest})
}
