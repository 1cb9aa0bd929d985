package server

import (
	"math/rand/v2"
	"net/http"
	"strings"
	"sync/atomic"

	apperrors "pizza-service/internal/common/errors"

	"github.com/gin-gonic/gin"
)

// chaosSurvival is the percentage of requests let through while chaos is on.
const chaosSurvival = 33

// Chaos is the fault injection switch. While enabled it fails roughly two
// thirds of requests with 503.
type Chaos struct {
	enabled atomic.Bool
	roll    func() float64
}

// NewChaos returns a disabled switch. roll returns values in [0,1); nil
// uses math/rand.
func NewChaos(roll func() float64) *Chaos {
	if roll == nil {
		roll = rand.Float64
	}
	return &Chaos{roll: roll}
}

func (c *Chaos) Set(enabled bool) {
	c.enabled.Store(enabled)
}

func (c *Chaos) Enabled() bool {
	return c.enabled.Load()
}

// exempt keeps the chaos toggle and logout reachable.
func exempt(r *http.Request) bool {
	path := r.URL.Path
	if strings.Contains(path, "chaos") {
		return true
	}
	return strings.Contains(path, "auth") && r.Method == http.MethodDelete
}

func (s *Server) chaosMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.chaos.Enabled() && !exempt(c.Request) && s.chaos.roll()*100 > chaosSurvival {
			s.fail(c, apperrors.NewServiceUnavailableError("chaos"))
			return
		}
		c.Next()
	}
}
