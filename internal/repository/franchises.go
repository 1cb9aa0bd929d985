package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pizza-service/internal/common/database"
	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"
)

const (
	selectAdminByEmail   = `SELECT id, name, email FROM users WHERE email = $1`
	insertFranchiseQuery = `INSERT INTO franchises (id, name) VALUES ($1, $2)`
	selectFranchiseQuery = `SELECT id, name FROM franchises WHERE id = $1`
	listFranchisesQuery  = `SELECT id, name FROM franchises WHERE name LIKE $1 ORDER BY name, id LIMIT $2 OFFSET $3`
	selectAdminsQuery    = `SELECT DISTINCT u.id, u.name, u.email FROM user_roles r
		JOIN users u ON u.id = r.user_id
		WHERE r.role = 'franchisee' AND r.object_id = $1
		ORDER BY u.name, u.id`
	selectStoresQuery = `SELECT id, name FROM stores WHERE franchise_id = $1 ORDER BY name, id`
	userFranchises    = `SELECT DISTINCT f.id, f.name FROM franchises f
		JOIN user_roles r ON r.object_id = f.id
		WHERE r.user_id = $1 AND r.role = 'franchisee'
		ORDER BY f.name, f.id`
	insertStoreQuery = `INSERT INTO stores (id, franchise_id, name) VALUES ($1, $2, $3)`
	deleteStoreQuery = `DELETE FROM stores WHERE id = $1 AND franchise_id = $2`

	deleteFranchiseStores = `DELETE FROM stores WHERE franchise_id = $1`
	deleteFranchiseRoles  = `DELETE FROM user_roles WHERE role = 'franchisee' AND object_id = $1`
	deleteFranchiseQuery  = `DELETE FROM franchises WHERE id = $1`
)

// CreateFranchise resolves every admin email, creates the franchise and
// grants each admin franchisee on it. Nothing is written if any admin is
// unknown.
func (r *Repository) CreateFranchise(ctx context.Context, spec models.FranchiseSpec) (models.Franchise, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return models.Franchise{}, apperrors.NewValidationError("franchise name is required")
	}

	franchise := models.Franchise{ID: r.newID(), Name: name, Stores: []models.Store{}}
	admins := []models.UserSummary{}

	err := r.withTx(ctx, "create franchise", func(tx *sql.Tx) error {
		seen := map[string]bool{}
		for _, ref := range spec.Admins {
			email := models.NormalizeEmail(ref.Email)
			var admin models.UserSummary
			err := tx.QueryRowContext(ctx, selectAdminByEmail, email).Scan(&admin.ID, &admin.Name, &admin.Email)
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NewUnknownFranchiseAdminError(email)
			}
			if err != nil {
				return err
			}
			if !seen[admin.ID] {
				seen[admin.ID] = true
				admins = append(admins, admin)
			}
		}

		if _, err := tx.ExecContext(ctx, insertFranchiseQuery, franchise.ID, franchise.Name); err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.NewConflictError("franchise name already exists")
			}
			return err
		}

		for _, admin := range admins {
			if _, err := tx.ExecContext(ctx, appendRoleQuery, admin.ID, string(models.RoleFranchisee), franchise.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Franchise{}, err
	}

	franchise.Admins = &admins
	r.logger.Info("Franchise created", map[string]interface{}{"franchiseId": franchise.ID, "admins": len(admins)})
	return franchise, nil
}

// GetFranchise returns the franchise with admins and stores.
func (r *Repository) GetFranchise(ctx context.Context, id string) (models.Franchise, error) {
	var f models.Franchise
	err := r.db.QueryRowContext(ctx, selectFranchiseQuery, id).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Franchise{}, apperrors.NewNotFoundError("franchise not found")
	}
	if err != nil {
		return models.Franchise{}, apperrors.NewInternalError("get franchise", err)
	}

	if err := r.fillFranchise(ctx, &f, true); err != nil {
		return models.Franchise{}, apperrors.NewInternalError("get franchise", err)
	}
	return f, nil
}

// ListFranchises returns one page ordered by name. Admin identities are
// only loaded when includeAdmins is set. nameFilter accepts * wildcards;
// empty matches everything.
func (r *Repository) ListFranchises(ctx context.Context, includeAdmins bool, page, pageSize int, nameFilter string) (models.FranchisePage, error) {
	if pageSize < 1 {
		pageSize = 1
	}
	pattern := likePattern(nameFilter)

	rows, err := r.db.QueryContext(ctx, listFranchisesQuery, pattern, pageSize+1, offset(page, pageSize))
	if err != nil {
		return models.FranchisePage{}, apperrors.NewInternalError("list franchises", err)
	}
	franchises, err := scanFranchises(rows)
	if err != nil {
		return models.FranchisePage{}, apperrors.NewInternalError("list franchises", err)
	}

	result := models.FranchisePage{Franchises: []models.Franchise{}}
	if len(franchises) > pageSize {
		result.More = true
		franchises = franchises[:pageSize]
	}

	for i := range franchises {
		if err := r.fillFranchise(ctx, &franchises[i], includeAdmins); err != nil {
			return models.FranchisePage{}, apperrors.NewInternalError("list franchises", err)
		}
	}
	result.Franchises = append(result.Franchises, franchises...)
	return result, nil
}

// ListUserFranchises returns the franchises userID is a franchisee of.
func (r *Repository) ListUserFranchises(ctx context.Context, userID string) ([]models.Franchise, error) {
	rows, err := r.db.QueryContext(ctx, userFranchises, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("list user franchises", err)
	}
	franchises, err := scanFranchises(rows)
	if err != nil {
		return nil, apperrors.NewInternalError("list user franchises", err)
	}

	for i := range franchises {
		if err := r.fillFranchise(ctx, &franchises[i], true); err != nil {
			return nil, apperrors.NewInternalError("list user franchises", err)
		}
	}
	return franchises, nil
}

func (r *Repository) CreateStore(ctx context.Context, franchiseID string, spec models.StoreSpec) (models.Store, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return models.Store{}, apperrors.NewValidationError("store name is required")
	}

	store := models.Store{ID: r.newID(), FranchiseID: franchiseID, Name: name}
	err := r.withTx(ctx, "create store", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, franchiseExistsStmt, franchiseID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFoundError("franchise not found")
		}
		_, err = tx.ExecContext(ctx, insertStoreQuery, store.ID, store.FranchiseID, store.Name)
		return err
	})
	if err != nil {
		return models.Store{}, err
	}
	return store, nil
}

func (r *Repository) DeleteStore(ctx context.Context, franchiseID, storeID string) error {
	return r.withTx(ctx, "delete store", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, franchiseExistsStmt, franchiseID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFoundError("franchise not found")
		}

		res, err := tx.ExecContext(ctx, deleteStoreQuery, storeID, franchiseID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NewNotFoundError("store not found")
		}
		return nil
	})
}

// DeleteFranchise removes the franchise, its stores and every franchisee
// role scoped to it in one transaction.
func (r *Repository) DeleteFranchise(ctx context.Context, id string) error {
	err := r.withTx(ctx, "delete franchise", func(tx *sql.Tx) error {
		return cascadeFranchiseRemoval(ctx, tx, id)
	})
	if err == nil {
		r.logger.Info("Franchise deleted", map[string]interface{}{"franchiseId": id})
	}
	return err
}

// cascadeFranchiseRemoval keeps stores and user_roles free of references to
// a deleted franchise. Orders are historical and keep theirs.
func cascadeFranchiseRemoval(ctx context.Context, tx database.DBTX, id string) error {
	if _, err := tx.ExecContext(ctx, deleteFranchiseStores, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deleteFranchiseRoles, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, deleteFranchiseQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("franchise not found")
	}
	return nil
}

func (r *Repository) fillFranchise(ctx context.Context, f *models.Franchise, includeAdmins bool) error {
	stores, err := loadStores(ctx, r.db, f.ID)
	if err != nil {
		return err
	}
	f.Stores = stores

	if !includeAdmins {
		f.Admins = nil
		return nil
	}
	admins, err := loadAdmins(ctx, r.db, f.ID)
	if err != nil {
		return err
	}
	f.Admins = &admins
	return nil
}

func loadStores(ctx context.Context, q database.DBTX, franchiseID string) ([]models.Store, error) {
	rows, err := q.QueryContext(ctx, selectStoresQuery, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := []models.Store{}
	for rows.Next() {
		s := models.Store{FranchiseID: franchiseID}
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func loadAdmins(ctx context.Context, q database.DBTX, franchiseID string) ([]models.UserSummary, error) {
	rows, err := q.QueryContext(ctx, selectAdminsQuery, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []models.UserSummary{}
	for rows.Next() {
		var a models.UserSummary
		if err := rows.Scan(&a.ID, &a.Name, &a.Email); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func scanFranchises(rows *sql.Rows) ([]models.Franchise, error) {
	defer rows.Close()

	var franchises []models.Franchise
	for rows.Next() {
		f := models.Franchise{Stores: []models.Store{}}
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, err
		}
		franchises = append(franchises, f)
	}
	return franchises, rows.Err()
}

// likePattern turns a * wildcard filter into a LIKE pattern. Literal % and _
// are escaped.
func likePattern(filter string) string {
	if filter == "" {
		return "%"
	}
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(filter)
	return strings.ReplaceAll(escaped, "*", "%")
}
