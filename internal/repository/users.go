package repository

import (
	"context"
	"database/sql"
	"errors"

	"pizza-service/internal/common/database"
	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"
)

const (
	insertUserQuery = `INSERT INTO users (id, name, email, password) VALUES ($1, $2, $3, $4)`
	insertRoleQuery = `INSERT INTO user_roles (user_id, role, object_id, position) VALUES ($1, $2, $3, $4)`
	appendRoleQuery = `INSERT INTO user_roles (user_id, role, object_id, position)
		SELECT $1, $2, $3, COALESCE(MAX(position) + 1, 0) FROM user_roles WHERE user_id = $1`
	selectUserByEmail   = `SELECT id, name, email, password FROM users WHERE email = $1`
	selectUserByID      = `SELECT id, name, email, password FROM users WHERE id = $1`
	selectRolesQuery    = `SELECT role, object_id FROM user_roles WHERE user_id = $1 ORDER BY position, id`
	updateUserQuery     = `UPDATE users SET email = $2, password = $3 WHERE id = $1`
	franchiseExistsStmt = `SELECT EXISTS (SELECT 1 FROM franchises WHERE id = $1)`
)

// CreateUser inserts the user and its roles. Franchisee roles must point at
// an existing franchise.
func (r *Repository) CreateUser(ctx context.Context, rec models.UserRecord) (models.User, error) {
	user := rec.User
	user.ID = r.newID()
	user.Email = models.NormalizeEmail(user.Email)

	err := r.withTx(ctx, "create user", func(tx *sql.Tx) error {
		for _, ra := range user.Roles {
			if ra.Role != models.RoleFranchisee {
				continue
			}
			ok, err := exists(ctx, tx, franchiseExistsStmt, ra.ObjectID)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NewNotFoundError("unknown franchise")
			}
		}

		if _, err := tx.ExecContext(ctx, insertUserQuery, user.ID, user.Name, user.Email, rec.PasswordHash); err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.NewConflictError("email already registered")
			}
			return err
		}

		for i, ra := range user.Roles {
			if _, err := tx.ExecContext(ctx, insertRoleQuery, user.ID, string(ra.Role), nullable(ra.ObjectID), i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (models.UserRecord, error) {
	return r.findUser(ctx, selectUserByEmail, models.NormalizeEmail(email))
}

func (r *Repository) GetUser(ctx context.Context, id string) (models.UserRecord, error) {
	return r.findUser(ctx, selectUserByID, id)
}

func (r *Repository) findUser(ctx context.Context, query, arg string) (models.UserRecord, error) {
	var rec models.UserRecord
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&rec.ID, &rec.Name, &rec.Email, &rec.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRecord{}, apperrors.NewNotFoundError("user not found")
	}
	if err != nil {
		return models.UserRecord{}, apperrors.NewInternalError("find user", err)
	}

	roles, err := loadRoles(ctx, r.db, rec.ID)
	if err != nil {
		return models.UserRecord{}, apperrors.NewInternalError("load roles", err)
	}
	rec.Roles = roles
	return rec, nil
}

// UpdateUserCredentials stores a new email and password hash.
func (r *Repository) UpdateUserCredentials(ctx context.Context, id, email, passwordHash string) (models.User, error) {
	res, err := r.db.ExecContext(ctx, updateUserQuery, id, models.NormalizeEmail(email), passwordHash)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, apperrors.NewConflictError("email already registered")
		}
		return models.User{}, apperrors.NewInternalError("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, apperrors.NewNotFoundError("user not found")
	}

	rec, err := r.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return rec.User, nil
}

func loadRoles(ctx context.Context, q database.DBTX, userID string) ([]models.RoleAssignment, error) {
	rows, err := q.QueryContext(ctx, selectRolesQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []models.RoleAssignment{}
	for rows.Next() {
		var (
			role     string
			objectID sql.NullString
		)
		if err := rows.Scan(&role, &objectID); err != nil {
			return nil, err
		}
		roles = append(roles, models.RoleAssignment{Role: models.Role(role), ObjectID: objectID.String})
	}
	return roles, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
