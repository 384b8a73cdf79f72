package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// HeaderInitData is the request header carrying the Telegram initData payload.
const HeaderInitData = "X-Telegram-Init-Data"

// contextKeyTelegramID is the gin context key holding the resolved identity.
const contextKeyTelegramID = "telegramID"

// Middleware resolves the session identity for every request and stores it in
// the gin context. Requests are rejected only under strict authentication.
func Middleware(resolver *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, errResolve := resolver.Resolve(c.Request.Context(), c.GetHeader(HeaderInitData))
		if errResolve != nil {
			if errors.Is(errResolve, ErrBotTokenRequired) {
				log.WithError(errResolve).Error("session resolver misconfigured")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
				return
			}
			if errors.Is(errResolve, ErrInvalidInitData) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid initData"})
				return
			}
			log.WithError(errResolve).Error("session resolution failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth failed"})
			return
		}
		c.Set(contextKeyTelegramID, id)
		c.Next()
	}
}

// TelegramID returns the identity resolved by Middleware, or AnonymousID when
// none was stored.
func TelegramID(c *gin.Context) int64 {
	v, exists := c.Get(contextKeyTelegramID)
	if !exists {
		return AnonymousID
	}
	id, ok := v.(int64)
	if !ok {
		return AnonymousID
	}
	return id
}
