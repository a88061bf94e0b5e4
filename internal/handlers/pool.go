package handlers

import (
	"errors"
	"net/http"

	"controlling_poolspa"
	"controlling_poolspa/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK     = "ok"
	statusQueued = "queued"

	errQueueRequest    = "failed to queue request"
	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, controlling_poolspa.ErrorResponse{Error: userMsg})
}

// respondQueued acknowledges a request and attaches the current snapshot.
// The snapshot predates the request; it is applied on a later tick.
func (h *Handler) respondQueued(c *gin.Context) {
	resp := controlling_poolspa.StatusResponse{Status: statusQueued}
	if st, err := h.services.Monitoring.GetState(c.Request.Context()); err == nil {
		resp.State = st
	}
	c.JSON(http.StatusAccepted, resp)
}

// ButtonRequest presses one front-panel button.
type ButtonRequest struct {
	// 0 HEAT_SPA, 1 HEAT_POOL, 2 SPA_JETS, 3 POOL_LIGHT, 4 FILTER_SPA,
	// 5 FILTER_POOL, 6 SPA_WATER_LEVEL, 7 MENU
	Button *int `json:"button" binding:"required" example:"5"`
}

// TempRequest nudges the active setpoint by one degree.
type TempRequest struct {
	Direction string `json:"direction" binding:"required" example:"up"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  controlling_poolspa.StatusResponse
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, controlling_poolspa.StatusResponse{Status: statusOK})
}

// @Summary      Current controller snapshot
// @Tags         pool
// @Produce      json
// @Success      200  {object}  models.PoolState
// @Failure      401  {object}  controlling_poolspa.ErrorResponse
// @Failure      500  {object}  controlling_poolspa.ErrorResponse
// @Router       /api/v1/pool/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Press a panel button
// @Description  Queues the press; the control loop applies it on its next tick.
// @Tags         pool
// @Accept       json
// @Produce      json
// @Param        body  body      ButtonRequest  true  "Button number"
// @Success      202   {object}  controlling_poolspa.StatusResponse
// @Failure      400   {object}  controlling_poolspa.ErrorResponse
// @Failure      401   {object}  controlling_poolspa.ErrorResponse
// @Router       /api/v1/pool/button [post]
// @Security     BearerAuth
func (h *Handler) pressButton(c *gin.Context) {
	var req ButtonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, controlling_poolspa.ErrorResponse{Error: errInvalidBodyPref + err.Error()})
		return
	}
	err := h.services.Control.PressButton(c.Request.Context(), *req.Button, service.SourceHTTP)
	if err != nil {
		h.controlError(c, err, "button", *req.Button)
		return
	}
	h.respondQueued(c)
}

// @Summary      Adjust the active setpoint
// @Description  Direction is "up" or "down"; ignored outside HEAT_SPA and HEAT_POOL.
// @Tags         pool
// @Accept       json
// @Produce      json
// @Param        body  body      TempRequest  true  "Direction"
// @Success      202   {object}  controlling_poolspa.StatusResponse
// @Failure      400   {object}  controlling_poolspa.ErrorResponse
// @Failure      401   {object}  controlling_poolspa.ErrorResponse
// @Router       /api/v1/pool/temp [post]
// @Security     BearerAuth
func (h *Handler) adjustTemp(c *gin.Context) {
	var req TempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, controlling_poolspa.ErrorResponse{Error: errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Control.AdjustTemp(c.Request.Context(), req.Direction, service.SourceHTTP); err != nil {
		h.controlError(c, err, "direction", req.Direction)
		return
	}
	h.respondQueued(c)
}

// @Summary      Stop everything
// @Description  Returns to IDLE, switches accessories off and runs the safe shutdown order.
// @Tags         pool
// @Produce      json
// @Success      202  {object}  controlling_poolspa.StatusResponse
// @Failure      401  {object}  controlling_poolspa.ErrorResponse
// @Router       /api/v1/pool/stop [post]
// @Security     BearerAuth
func (h *Handler) stopPool(c *gin.Context) {
	if err := h.services.Control.Stop(c.Request.Context(), service.SourceHTTP); err != nil {
		h.controlError(c, err)
		return
	}
	h.respondQueued(c)
}

func (h *Handler) controlError(c *gin.Context, err error, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrInvalidButton), errors.Is(err, service.ErrInvalidDirection):
		c.JSON(http.StatusBadRequest, controlling_poolspa.ErrorResponse{Error: err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errQueueRequest, "control_request_failed", err, kv...)
	}
}
