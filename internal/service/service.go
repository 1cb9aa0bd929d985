// Package service is the application facade. Every caller-scoped operation
// is authorized here before it reaches the repository.
package service

import (
	"context"
	"errors"

	"pizza-service/internal/authz"
	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/common/logger"
	"pizza-service/internal/models"
	"pizza-service/internal/session"
)

const (
	defaultFranchisePageSize = 10
	defaultOrderPageSize     = 10
)

type Credentials interface {
	Register(ctx context.Context, name, email, password string, roles []models.RoleAssignment) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	Update(ctx context.Context, userID, email, password string) (models.User, error)
}

type Sessions interface {
	Issue(ctx context.Context, user models.User) (string, error)
	Resolve(ctx context.Context, token string) (*session.Claims, error)
	Revoke(ctx context.Context, token string) error
}

// Repository is the domain data the facade reads and writes.
type Repository interface {
	GetUser(ctx context.Context, id string) (models.UserRecord, error)
	CreateFranchise(ctx context.Context, spec models.FranchiseSpec) (models.Franchise, error)
	GetFranchise(ctx context.Context, id string) (models.Franchise, error)
	ListFranchises(ctx context.Context, includeAdmins bool, page, pageSize int, nameFilter string) (models.FranchisePage, error)
	ListUserFranchises(ctx context.Context, userID string) ([]models.Franchise, error)
	DeleteFranchise(ctx context.Context, id string) error
	CreateStore(ctx context.Context, franchiseID string, spec models.StoreSpec) (models.Store, error)
	DeleteStore(ctx context.Context, franchiseID, storeID string) error
	AddMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error)
	GetMenu(ctx context.Context) ([]models.MenuItem, error)
	ListOrders(ctx context.Context, dinerID string, page, pageSize int) (models.OrderPage, error)
}

type OrderPlacer interface {
	Place(ctx context.Context, diner models.User, spec models.OrderSpec) (models.Order, error)
}

// Recorder receives authentication and session metrics.
type Recorder interface {
	AuthAttempt(success bool)
	SessionOpened()
	SessionClosed()
}

// ChaosSwitch is the process-wide fault injection flag.
type ChaosSwitch interface {
	Set(enabled bool)
	Enabled() bool
}

type Options struct {
	FranchisePageSize int
	OrderPageSize     int
}

type Dependencies struct {
	Credentials Credentials
	Sessions    Sessions
	Repository  Repository
	Orders      OrderPlacer
	Recorder    Recorder
	Chaos       ChaosSwitch
	Logger      logger.Logger
}

type Service struct {
	creds    Credentials
	sessions Sessions
	repo     Repository
	orders   OrderPlacer
	recorder Recorder
	chaos    ChaosSwitch
	logger   logger.Logger
	opts     Options
}

func New(deps Dependencies, opts Options) *Service {
	if opts.FranchisePageSize <= 0 {
		opts.FranchisePageSize = defaultFranchisePageSize
	}
	if opts.OrderPageSize <= 0 {
		opts.OrderPageSize = defaultOrderPageSize
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		creds:    deps.Credentials,
		sessions: deps.Sessions,
		repo:     deps.Repository,
		orders:   deps.Orders,
		recorder: recorder,
		chaos:    deps.Chaos,
		logger:   log.WithFields(map[string]interface{}{"component": "service"}),
		opts:     opts,
	}
}

// Auth is a user together with a freshly issued session token.
type Auth struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a diner account and logs it in.
func (s *Service) Register(ctx context.Context, name, email, password string) (Auth, error) {
	user, err := s.creds.Register(ctx, name, email, password, nil)
	if err != nil {
		return Auth{}, err
	}
	return s.openSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Auth, error) {
	user, err := s.creds.Authenticate(ctx, email, password)
	s.recorder.AuthAttempt(err == nil)
	if err != nil {
		s.logger.Info("Login rejected", map[string]interface{}{"email": models.NormalizeEmail(email)})
		return Auth{}, err
	}
	return s.openSession(ctx, user)
}

func (s *Service) openSession(ctx context.Context, user models.User) (Auth, error) {
	token, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return Auth{}, err
	}
	s.recorder.SessionOpened()
	return Auth{User: user, Token: token}, nil
}

// Logout revokes a live token. Dead tokens are rejected as unauthorized.
func (s *Service) Logout(ctx context.Context, token string) error {
	if _, err := s.sessions.Resolve(ctx, token); err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}
	s.recorder.SessionClosed()
	return nil
}

// Authenticate resolves a bearer token to the user it was issued for. Roles
// are read from the store, so grants and revocations made after login apply
// to live sessions.
func (s *Service) Authenticate(ctx context.Context, token string) (models.User, error) {
	claims, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	rec, err := s.repo.GetUser(ctx, claims.User.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.User{}, apperrors.NewAuthenticationError("user no longer exists")
	}
	if err != nil {
		return models.User{}, err
	}
	return rec.User, nil
}

// UpdateUser changes email and/or password. Live sessions stay valid and
// pick up the new profile through Authenticate.
func (s *Service) UpdateUser(ctx context.Context, caller models.User, userID, email, password string) (models.User, error) {
	if err := authz.Require(authz.SubjectOf(caller), authz.UpdateUser, authz.User(userID)); err != nil {
		return models.User{}, err
	}
	return s.creds.Update(ctx, userID, email, password)
}

// ListFranchises is public. Admin identities are only included for callers
// allowed to see them.
func (s *Service) ListFranchises(ctx context.Context, caller *models.User, page int, nameFilter string) (models.FranchisePage, error) {
	includeAdmins := false
	if caller != nil {
		includeAdmins = authz.Decide(authz.SubjectOf(*caller), authz.ViewFranchiseAdmins, authz.Global()).Allowed
	}
	return s.repo.ListFranchises(ctx, includeAdmins, page, s.opts.FranchisePageSize, nameFilter)
}

// ListUserFranchises returns an empty list, not an error, when the caller
// may not look at userID.
func (s *Service) ListUserFranchises(ctx context.Context, caller models.User, userID string) ([]models.Franchise, error) {
	if !authz.Decide(authz.SubjectOf(caller), authz.ListUserFranchises, authz.User(userID)).Allowed {
		return []models.Franchise{}, nil
	}
	franchises, err := s.repo.ListUserFranchises(ctx, userID)
	if err != nil {
		return nil, err
	}
	if franchises == nil {
		franchises = []models.Franchise{}
	}
	return franchises, nil
}

// GetFranchise shows admins to admins and to the franchise's own franchisees.
func (s *Service) GetFranchise(ctx context.Context, caller models.User, id string) (models.Franchise, error) {
	franchise, err := s.repo.GetFranchise(ctx, id)
	if err != nil {
		return models.Franchise{}, err
	}
	subject := authz.SubjectOf(caller)
	if !authz.Decide(subject, authz.ViewFranchiseAdmins, authz.Franchise(id)).Allowed && !authz.IsFranchiseeOf(subject, id) {
		franchise.Admins = nil
	}
	return franchise, nil
}

func (s *Service) CreateFranchise(ctx context.Context, caller models.User, spec models.FranchiseSpec) (models.Franchise, error) {
	if err := authz.Require(authz.SubjectOf(caller), authz.CreateFranchise, authz.Global()); err != nil {
		return models.Franchise{}, err
	}
	return s.repo.CreateFranchise(ctx, spec)
}

func (s *Service) DeleteFranchise(ctx context.Context, caller models.User, id string) error {
	if err := authz.Require(authz.SubjectOf(caller), authz.DeleteFranchise, authz.Franchise(id)); err != nil {
		return err
	}
	return s.repo.DeleteFranchise(ctx, id)
}

func (s *Service) CreateStore(ctx context.Context, caller models.User, franchiseID string, spec models.StoreSpec) (models.Store, error) {
	if err := authz.Require(authz.SubjectOf(caller), authz.CreateStore, authz.Franchise(franchiseID)); err != nil {
		return models.Store{}, err
	}
	return s.repo.CreateStore(ctx, franchiseID, spec)
}

func (s *Service) DeleteStore(ctx context.Context, caller models.User, franchiseID, storeID string) error {
	if err := authz.Require(authz.SubjectOf(caller), authz.DeleteStore, authz.Franchise(franchiseID)); err != nil {
		return err
	}
	return s.repo.DeleteStore(ctx, franchiseID, storeID)
}

func (s *Service) GetMenu(ctx context.Context) ([]models.MenuItem, error) {
	return s.repo.GetMenu(ctx)
}

// AddMenuItem returns the whole menu after the insert.
func (s *Service) AddMenuItem(ctx context.Context, caller models.User, item models.MenuItem) ([]models.MenuItem, error) {
	if err := authz.Require(authz.SubjectOf(caller), authz.AddMenuItem, authz.Global()); err != nil {
		return nil, err
	}
	if _, err := s.repo.AddMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return s.repo.GetMenu(ctx)
}

func (s *Service) ListOrders(ctx context.Context, caller models.User, page int) (models.OrderPage, error) {
	if err := authz.Require(authz.SubjectOf(caller), authz.ViewOwnOrders, authz.User(caller.ID)); err != nil {
		return models.OrderPage{}, err
	}
	return s.repo.ListOrders(ctx, caller.ID, page, s.opts.OrderPageSize)
}

// PlaceOrder may return a failed order alongside a dependency error.
func (s *Service) PlaceOrder(ctx context.Context, caller models.User, spec models.OrderSpec) (models.Order, error) {
	if err := authz.Require(authz.SubjectOf(caller), authz.PlaceOrder, authz.User(caller.ID)); err != nil {
		return models.Order{}, err
	}
	return s.orders.Place(ctx, caller, spec)
}

func (s *Service) SetChaos(ctx context.Context, caller models.User, enabled bool) (bool, error) {
	if err := authz.Require(authz.SubjectOf(caller), authz.ToggleChaos, authz.Global()); err != nil {
		return s.ChaosEnabled(), err
	}
	if s.chaos == nil {
		return false, apperrors.NewServiceUnavailableError("chaos switch not configured")
	}
	s.chaos.Set(enabled)
	s.logger.Warn("Chaos toggled", map[string]interface{}{"enabled": enabled, "userId": caller.ID})
	return enabled, nil
}

func (s *Service) ChaosEnabled() bool {
	return s.chaos != nil && s.chaos.Enabled()
}

type nopRecorder struct{}

func (nopRecorder) AuthAttempt(bool) {}
func (nopRecorder) SessionOpened()   {}
func (nopRecorder) SessionClosed()   {}
