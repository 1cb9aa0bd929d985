// Package credentials registers users and verifies their passwords.
package credentials

import (
	"context"
	"errors"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/common/logger"
	"pizza-service/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, rec models.UserRecord) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.UserRecord, error)
	GetUser(ctx context.Context, id string) (models.UserRecord, error)
	UpdateUserCredentials(ctx context.Context, id, email, passwordHash string) (models.User, error)
}

type Store struct {
	users  UserStore
	cost   int
	logger logger.Logger
}

func NewStore(users UserStore, bcryptCost int, log logger.Logger) *Store {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Store{
		users:  users,
		cost:   bcryptCost,
		logger: log.WithFields(map[string]interface{}{"component": "credentials"}),
	}
}

// Register creates a user. Empty roles default to diner.
func (s *Store) Register(ctx context.Context, name, email, password string, roles []models.RoleAssignment) (models.User, error) {
	email = models.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return models.User{}, apperrors.NewValidationError("name, email, and password are required")
	}
	if err := validation.Validate(email, is.EmailFormat); err != nil {
		return models.User{}, apperrors.NewValidationError("invalid email")
	}

	if len(roles) == 0 {
		roles = []models.RoleAssignment{{Role: models.RoleDiner}}
	}
	if err := validateRoles(roles); err != nil {
		return models.User{}, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.CreateUser(ctx, models.UserRecord{
		User:         models.User{Name: name, Email: email, Roles: roles},
		PasswordHash: hash,
	})
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("User registered", map[string]interface{}{"userId": user.ID})
	return user, nil
}

// EnsureAdmin registers an admin account unless the email is already taken.
// It reports whether a user was created.
func (s *Store) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.Register(ctx, name, email, password, []models.RoleAssignment{{Role: models.RoleAdmin}})
	if errors.Is(err, apperrors.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate returns the user when the password matches. Unknown emails
// and wrong passwords fail with the same error.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	rec, err := s.users.FindUserByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.User{}, apperrors.NewUnknownUserError()
		}
		return models.User{}, err
	}

	if err := comparePasswordAndHash(password, rec.PasswordHash); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return models.User{}, apperrors.NewUnknownUserError()
		}
		return models.User{}, apperrors.NewInternalError("compare password", err)
	}
	return rec.User, nil
}

// Update changes email and/or password. Empty values keep the current one.
func (s *Store) Update(ctx context.Context, userID, email, password string) (models.User, error) {
	rec, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	newEmail := rec.Email
	if email != "" {
		newEmail = models.NormalizeEmail(email)
		if err := validation.Validate(newEmail, is.EmailFormat); err != nil {
			return models.User{}, apperrors.NewValidationError("invalid email")
		}
	}

	newHash := rec.PasswordHash
	if password != "" {
		if newHash, err = s.hashPassword(password); err != nil {
			return models.User{}, err
		}
	}

	user, err := s.users.UpdateUserCredentials(ctx, userID, newEmail, newHash)
	if err != nil {
		return models.User{}, err
	}
	s.logger.Info("User updated", map[string]interface{}{"userId": userID})
	return user, nil
}

func validateRoles(roles []models.RoleAssignment) error {
	for _, ra := range roles {
		if !ra.Role.Valid() {
			return apperrors.NewValidationError("unknown role " + string(ra.Role))
		}
		if ra.Role == models.RoleFranchisee && ra.ObjectID == "" {
			return apperrors.NewValidationError("franchisee role requires a franchise")
		}
		if ra.Role != models.RoleFranchisee && ra.ObjectID != "" {
			return apperrors.NewValidationError(string(ra.Role) + " role cannot be scoped")
		}
	}
	return nil
}

func (s *Store) hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperrors.NewValidationError("password is too long")
		}
		return "", apperrors.NewInternalError("hash password", err)
	}
	return string(h), nil
}

func comparePasswordAndHash(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
