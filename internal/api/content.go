package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// ListRaces handles GET /api/races.
func (h *Handler) ListRaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"races": h.catalog.Races()})
}

type locationView struct {
	ruleset.Location
	Accessible bool `json:"accessible"`
}

// ListLocations handles GET /api/locations. Accessibility is judged against the
// active character, or level 1 without a session.
func (h *Handler) ListLocations(c *gin.Context) {
	level := 1
	if char, ok := h.sessions.Active(); ok {
		level = char.Snapshot().Level
	}
	locs := h.catalog.Locations()
	out := make([]locationView, 0, len(locs))
	for _, l := range locs {
		out = append(out, locationView{Location: l, Accessible: l.Accessible(level)})
	}
	c.JSON(http.StatusOK, gin.H{"locations": out})
}

// ListShop handles GET /api/shop.
func (h *Handler) ListShop(c *gin.Context) {
	listings, err := h.shop.Listings(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// Purchase handles POST /api/shop/:item_id/purchase.
func (h *Handler) Purchase(c *gin.Context) {
	receipt, err := h.shop.Purchase(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// Currency handles GET /api/currency.
func (h *Handler) Currency(c *gin.Context) {
	bal, err := h.wallet.GlobalCurrency(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"global_currency": bal})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.sessions.Stats(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
