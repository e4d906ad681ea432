package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"
	// Browsers cannot set headers on a websocket handshake, so /ws may carry the token here.
	tokenQueryParam = "access_token"
	ctxUserID       = "userId"

	errMissingAuth  = "missing Authorization header"
	errInvalidAuth  = "invalid Authorization header format"
	errInvalidToken = "invalid or expired token"
)

func (h *Handler) userIdMiddleware(c *gin.Context) {
	token, msg := bearerToken(c)
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: msg, Code: codeUnauthorized})
		return
	}

	userId, err := h.services.ParseToken(token)
	if err != nil {
		h.log.Infow("auth_token_rejected", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errInvalidToken, Code: codeUnauthorized})
		return
	}

	c.Set(ctxUserID, userId)
	c.Next()
}

// bearerToken extracts the token, or returns the message for a 401.
func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader(authorizationHeader)
	if header == "" {
		if t := c.Query(tokenQueryParam); t != "" && websocket.IsWebSocketUpgrade(c.Request) {
			return t, ""
		}
		return "", errMissingAuth
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", errInvalidAuth
	}
	return parts[1], ""
}

// operatorID is the authenticated user id, 0 on unauthenticated routes.
func operatorID(c *gin.Context) int {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(int)
	return id
}
