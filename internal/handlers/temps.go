package handlers

import (
	"net/http"
	"strconv"

	"controlling_poolspa/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Temperature history
// @Description  Once-a-minute water samples recorded while the pump circulates.
// @Tags         history
// @Produce      json
// @Param        from   query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to     query   string  false  "End of range; date-only is end of day"
// @Param        limit  query   int     false  "Newest N samples (default 500, max 5000)"
// @Success      200    {object}  map[string]interface{}  "count, samples"
// @Failure      400    {object}  controlling_poolspa.ErrorResponse
// @Failure      401    {object}  controlling_poolspa.ErrorResponse
// @Failure      500    {object}  controlling_poolspa.ErrorResponse
// @Router       /api/v1/temps [get]
// @Security     BearerAuth
func (h *Handler) getTemps(c *gin.Context) {
	from, to, limit, ok := parseRangeQuery(c)
	if !ok {
		return
	}
	samples, err := h.services.History.List(c.Request.Context(), service.HistoryFilter{From: from, To: to, Limit: limit})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load history", "history_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}

// @Summary      Known API clients
// @Tags         system
// @Produce      json
// @Param        limit  query   int  false  "Most recently seen N (default 500)"
// @Success      200    {object}  map[string]interface{}  "count, visitors"
// @Failure      400    {object}  controlling_poolspa.ErrorResponse
// @Failure      401    {object}  controlling_poolspa.ErrorResponse
// @Router       /api/v1/visitors [get]
// @Security     BearerAuth
func (h *Handler) getVisitors(c *gin.Context) {
	limit := 0
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimit})
			return
		}
		limit = n
	}
	visitors, err := h.services.Visitors.List(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load visitors", "visitors_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(visitors),
		"visitors": visitors,
	})
}
