package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"

	"github.com/gin-gonic/gin"
)

type endpoint struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	RequiresAuth bool   `json:"requiresAuth"`
	Description  string `json:"description"`
	Example      string `json:"example,omitempty"`

	handler gin.HandlerFunc
}

func (s *Server) endpointTable() []endpoint {
	return []endpoint{
		{Method: http.MethodPost, Path: "/api/auth", Description: "Register a new user",
			Example: `curl -X POST localhost:3000/api/auth -d '{"name":"pizza diner","email":"d@jwt.com","password":"diner"}' -H 'Content-Type: application/json'`,
			handler: s.handleRegister},
		{Method: http.MethodPut, Path: "/api/auth", Description: "Login existing user",
			Example: `curl -X PUT localhost:3000/api/auth -d '{"email":"a@jwt.com","password":"admin"}' -H 'Content-Type: application/json'`,
			handler: s.handleLogin},
		{Method: http.MethodPut, Path: "/api/auth/:userId", RequiresAuth: true, Description: "Update user",
			handler: s.handleUpdateUser},
		{Method: http.MethodDelete, Path: "/api/auth", RequiresAuth: true, Description: "Logout a user",
			handler: s.handleLogout},

		{Method: http.MethodGet, Path: "/api/order/menu", Description: "Get the pizza menu",
			handler: s.handleGetMenu},
		{Method: http.MethodPut, Path: "/api/order/menu", RequiresAuth: true, Description: "Add an item to the menu",
			handler: s.handleAddMenuItem},
		{Method: http.MethodGet, Path: "/api/order", RequiresAuth: true, Description: "Get the orders for the authenticated user",
			handler: s.handleListOrders},
		{Method: http.MethodPost, Path: "/api/order", RequiresAuth: true, Description: "Create an order for the authenticated user",
			handler: s.handlePlaceOrder},
		{Method: http.MethodPut, Path: "/api/order/chaos/:state", RequiresAuth: true, Description: "Enable or disable chaos",
			handler: s.handleChaos},

		{Method: http.MethodGet, Path: "/api/franchise", Description: "List franchises, admins included for admins",
			Example: `curl localhost:3000/api/franchise?page=1&name=pizza*`,
			handler: s.handleListFranchises},
		{Method: http.MethodGet, Path: "/api/franchise/:userId", RequiresAuth: true, Description: "List a user's franchises",
			handler: s.handleUserFranchises},
		{Method: http.MethodPost, Path: "/api/franchise", RequiresAuth: true, Description: "Create a new franchise",
			handler: s.handleCreateFranchise},
		{Method: http.MethodDelete, Path: "/api/franchise/:franchiseId", RequiresAuth: true, Description: "Delete a franchise",
			handler: s.handleDeleteFranchise},
		{Method: http.MethodPost, Path: "/api/franchise/:franchiseId/store", RequiresAuth: true, Description: "Create a new franchise store",
			handler: s.handleCreateStore},
		{Method: http.MethodDelete, Path: "/api/franchise/:franchiseId/store/:storeId", RequiresAuth: true, Description: "Delete a store",
			handler: s.handleDeleteStore},
	}
}

// bind validates the body against a named schema and decodes it into out.
func (s *Server) bind(c *gin.Context, schema string, out interface{}) bool {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, apperrors.NewValidationError("unable to read request body"))
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	res, err := s.validator.ValidateJSON(schema, body)
	if err != nil {
		s.fail(c, apperrors.NewInternalError("validate "+schema, err))
		return false
	}
	if !res.Valid {
		msg, ok := schemaMessages[schema]
		if !ok {
			msg = res.Summary()
		}
		s.fail(c, apperrors.NewValidationError(msg))
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		s.fail(c, apperrors.NewValidationError("invalid request body"))
		return false
	}
	return true
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, schemaRegister, &req) {
		return
	}
	auth, err := s.api.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, auth)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, schemaLogin, &req) {
		return
	}
	auth, err := s.api.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, auth)
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var req credentialsRequest
	if !s.bind(c, schemaUpdate, &req) {
		return
	}
	caller, _ := currentUser(c)
	user, err := s.api.UpdateUser(c.Request.Context(), caller, c.Param("userId"), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, user)
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.api.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, gin.H{"message": "logout successful"})
}

func (s *Server) handleGetMenu(c *gin.Context) {
	menu, err := s.api.GetMenu(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, menu)
}

func (s *Server) handleAddMenuItem(c *gin.Context) {
	var item models.MenuItem
	if !s.bind(c, schemaMenuItem, &item) {
		return
	}
	caller, _ := currentUser(c)
	menu, err := s.api.AddMenuItem(c.Request.Context(), caller, item)
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, menu)
}

func (s *Server) handleListOrders(c *gin.Context) {
	caller, _ := currentUser(c)
	page, err := s.api.ListOrders(c.Request.Context(), caller, pageParam(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, page)
}

type orderResponse struct {
	Order     *models.Order `json:"order,omitempty"`
	Message   string        `json:"message,omitempty"`
	JWT       string        `json:"jwt,omitempty"`
	ReportURL string        `json:"followLinkToEndChaos,omitempty"`
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	var spec models.OrderSpec
	if !s.bind(c, schemaOrder, &spec) {
		return
	}
	caller, _ := currentUser(c)
	order, err := s.api.PlaceOrder(c.Request.Context(), caller, spec)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeDependencyFailed && order.ID != "" {
			stdErr, _ := apperrors.As(err)
			s.logger.Warn("Order not fulfilled", map[string]interface{}{"orderId": order.ID, "details": stdErr.Details})
			c.JSON(http.StatusInternalServerError, orderResponse{Message: stdErr.Message, ReportURL: order.ReportURL})
			return
		}
		s.fail(c, err)
		return
	}
	statusOK(c, orderResponse{Order: &order, JWT: order.FulfillmentToken, ReportURL: order.ReportURL})
}

func (s *Server) handleChaos(c *gin.Context) {
	caller, _ := currentUser(c)
	enabled, err := s.api.SetChaos(c.Request.Context(), caller, c.Param("state") == "true")
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, gin.H{"chaos": enabled})
}

func (s *Server) handleListFranchises(c *gin.Context) {
	page, err := s.api.ListFranchises(c.Request.Context(), callerOrNil(c), pageParam(c), c.Query("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, page)
}

func (s *Server) handleUserFranchises(c *gin.Context) {
	caller, _ := currentUser(c)
	franchises, err := s.api.ListUserFranchises(c.Request.Context(), caller, c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, franchises)
}

func (s *Server) handleCreateFranchise(c *gin.Context) {
	var spec models.FranchiseSpec
	if !s.bind(c, schemaFranchise, &spec) {
		return
	}
	caller, _ := currentUser(c)
	franchise, err := s.api.CreateFranchise(c.Request.Context(), caller, spec)
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, franchise)
}

func (s *Server) handleDeleteFranchise(c *gin.Context) {
	caller, _ := currentUser(c)
	if err := s.api.DeleteFranchise(c.Request.Context(), caller, c.Param("franchiseId")); err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, gin.H{"message": "franchise deleted"})
}

func (s *Server) handleCreateStore(c *gin.Context) {
	var spec models.StoreSpec
	if !s.bind(c, schemaStore, &spec) {
		return
	}
	caller, _ := currentUser(c)
	store, err := s.api.CreateStore(c.Request.Context(), caller, c.Param("franchiseId"), spec)
	if err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, store)
}

func (s *Server) handleDeleteStore(c *gin.Context) {
	caller, _ := currentUser(c)
	if err := s.api.DeleteStore(c.Request.Context(), caller, c.Param("franchiseId"), c.Param("storeId")); err != nil {
		s.fail(c, err)
		return
	}
	statusOK(c, gin.H{"message": "store deleted"})
}

func (s *Server) handleDocs(c *gin.Context) {
	statusOK(c, gin.H{
		"version":   s.info.Version,
		"endpoints": s.endpoints,
		"config":    gin.H{"factory": s.info.FactoryURL, "db": s.info.DBHost},
	})
}

func (s *Server) handleRoot(c *gin.Context) {
	statusOK(c, gin.H{"message": "welcome to JWT Pizza", "version": s.info.Version})
}
