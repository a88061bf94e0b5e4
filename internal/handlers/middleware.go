package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	errMissingAuth = "missing Authorization header"
	errBadAuth     = "invalid Authorization header format"
	errBadToken    = "invalid or expired token"
)

func (h *Handler) userIdMiddleware(c *gin.Context) {
	token, msg := bearerToken(c.GetHeader("Authorization"))
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}
	h.authorize(c, token)
}

// wsAuthMiddleware guards the stream. Browsers cannot set headers on a
// WebSocket handshake, so the token may also come as ?token=.
func (h *Handler) wsAuthMiddleware(c *gin.Context) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, msg := bearerToken(header)
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		h.authorize(c, token)
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuth})
		return
	}
	h.authorize(c, token)
}

func (h *Handler) authorize(c *gin.Context, token string) {
	if h.services.Authorization == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}
	userId, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "path", c.Request.URL.Path, "ip", c.ClientIP(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}

	// store in Gin context
	c.Set("userId", userId)
	c.Next()
}

// bearerToken splits "Bearer <token>". A non-empty msg is the rejection.
func bearerToken(header string) (token, msg string) {
	if header == "" {
		return "", errMissingAuth
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errBadAuth
	}
	return parts[1], ""
}

// visitorMiddleware records the client address of every API request. A
// failed write is logged and never blocks the request.
func (h *Handler) visitorMiddleware(c *gin.Context) {
	if h.services.Visitors != nil {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if err := h.services.Visitors.Touch(c.Request.Context(), c.ClientIP(), path); err != nil && h.log != nil {
			h.log.Warnw("visitor_touch_failed", "ip", c.ClientIP(), "err", err)
		}
	}
	c.Next()
}
