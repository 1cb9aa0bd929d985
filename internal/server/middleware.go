package server

import (
	"net/http"
	"strings"
	"time"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

// observe counts requests and records their latency.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if s.metrics != nil {
			s.metrics.Request(c.Request.Method)
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.obs.RecordRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), elapsed)
		s.logger.Debug("Request served", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": elapsed.String(),
		})
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Credentials", "true")
		c.Next()
	}
}

// identify attaches the caller when the request carries a live bearer
// token. Anonymous requests pass through.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token != "" {
			if user, err := s.api.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(userKey, user)
				c.Set(tokenKey, token)
			}
		}
		c.Next()
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			s.fail(c, apperrors.NewAuthenticationError("missing or invalid token"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func currentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func callerOrNil(c *gin.Context) *models.User {
	if user, ok := currentUser(c); ok {
		return &user
	}
	return nil
}

func statusOK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}
