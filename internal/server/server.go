// Package server is the gin HTTP adapter in front of the service facade.
package server

import (
	"context"
	"net/http"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/common/logger"
	"pizza-service/internal/common/metrics"
	"pizza-service/internal/common/observability"
	"pizza-service/internal/common/validation"
	"pizza-service/internal/models"
	"pizza-service/internal/service"

	"github.com/gin-gonic/gin"
)

// API is the facade the handlers call. *service.Service implements it.
type API interface {
	Register(ctx context.Context, name, email, password string) (service.Auth, error)
	Login(ctx context.Context, email, password string) (service.Auth, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (models.User, error)
	UpdateUser(ctx context.Context, caller models.User, userID, email, password string) (models.User, error)

	ListFranchises(ctx context.Context, caller *models.User, page int, nameFilter string) (models.FranchisePage, error)
	ListUserFranchises(ctx context.Context, caller models.User, userID string) ([]models.Franchise, error)
	CreateFranchise(ctx context.Context, caller models.User, spec models.FranchiseSpec) (models.Franchise, error)
	DeleteFranchise(ctx context.Context, caller models.User, id string) error
	CreateStore(ctx context.Context, caller models.User, franchiseID string, spec models.StoreSpec) (models.Store, error)
	DeleteStore(ctx context.Context, caller models.User, franchiseID, storeID string) error

	GetMenu(ctx context.Context) ([]models.MenuItem, error)
	AddMenuItem(ctx context.Context, caller models.User, item models.MenuItem) ([]models.MenuItem, error)
	ListOrders(ctx context.Context, caller models.User, page int) (models.OrderPage, error)
	PlaceOrder(ctx context.Context, caller models.User, spec models.OrderSpec) (models.Order, error)
	SetChaos(ctx context.Context, caller models.User, enabled bool) (bool, error)
}

// Info is reported by / and /api/docs.
type Info struct {
	Version    string
	FactoryURL string
	DBHost     string
}

type Deps struct {
	API         API
	Chaos       *Chaos
	Metrics     *metrics.Registry
	MetricsPath string
	Obs         *observability.Observability
	Logger      logger.Logger
	Info        Info
}

type Server struct {
	engine     *gin.Engine
	api        API
	chaos      *Chaos
	metrics    *metrics.Registry
	obs        *observability.Observability
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
	info       Info
	endpoints  []endpoint
	metricPath string
}

func New(deps Deps) (*Server, error) {
	validator, err := validation.NewValidator(requestSchemas)
	if err != nil {
		return nil, err
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "http"})

	chaos := deps.Chaos
	if chaos == nil {
		chaos = NewChaos(nil)
	}

	s := &Server{
		engine:     gin.New(),
		api:        deps.API,
		chaos:      chaos,
		metrics:    deps.Metrics,
		obs:        deps.Obs,
		validator:  validator,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
		info:       deps.Info,
		metricPath: deps.MetricsPath,
	}
	if s.metricPath == "" {
		s.metricPath = "/metrics"
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), s.observe(), cors(), s.identify(), s.chaosMiddleware())

	s.endpoints = s.endpointTable()
	for _, ep := range s.endpoints {
		handlers := []gin.HandlerFunc{}
		if ep.RequiresAuth {
			handlers = append(handlers, s.requireUser())
		}
		handlers = append(handlers, ep.handler)
		s.engine.Handle(ep.Method, ep.Path, handlers...)
	}

	s.engine.GET("/api/docs", s.handleDocs)
	s.engine.GET("/", s.handleRoot)
	if s.metrics != nil {
		s.engine.GET(s.metricPath, gin.WrapH(s.metrics.Handler()))
	}
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown endpoint"})
	})
}

// fail writes err through the shared error handler and aborts.
func (s *Server) fail(c *gin.Context, err error) {
	status, resp := s.errHandler.Handle(err, map[string]interface{}{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
	c.AbortWithStatusJSON(status, resp)
}
