package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/common/logger"
	"pizza-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(db, logger.NewTestLogger(t))
	n := 0
	repo.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return repo, mock
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_WithFranchiseeRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("F").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("INSERT INTO users").WithArgs("id-1", "pizza franchisee", "f@jwt.com", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs("id-1", "diner", sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs("id-1", "franchisee", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	user, err := repo.CreateUser(context.Background(), models.UserRecord{
		User: models.User{Name: "pizza franchisee", Email: "F@jwt.com", Roles: []models.RoleAssignment{
			{Role: models.RoleDiner},
			{Role: models.RoleFranchisee, ObjectID: "F"},
		}},
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", user.ID)
	assert.Equal(t, "f@jwt.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_UnknownFranchise(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.CreateUser(context.Background(), models.UserRecord{
		User:         models.User{Name: "x", Email: "x@jwt.com", Roles: []models.RoleAssignment{{Role: models.RoleFranchisee, ObjectID: "gone"}}},
		PasswordHash: "hash",
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateUser(context.Background(), models.UserRecord{
		User:         models.User{Name: "x", Email: "x@jwt.com", Roles: []models.RoleAssignment{{Role: models.RoleDiner}}},
		PasswordHash: "hash",
	})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, name, email, password FROM users WHERE email").WithArgs("d@jwt.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password"}).
			AddRow("u-1", "pizza diner", "d@jwt.com", "hash"))
	mock.ExpectQuery("SELECT role, object_id FROM user_roles").WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role", "object_id"}).
			AddRow("diner", nil).
			AddRow("franchisee", "F"))

	rec, err := repo.FindUserByEmail(context.Background(), " D@jwt.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", rec.PasswordHash)
	assert.Equal(t, []models.RoleAssignment{
		{Role: models.RoleDiner},
		{Role: models.RoleFranchisee, ObjectID: "F"},
	}, rec.Roles)

	mock.ExpectQuery("SELECT id, name, email, password FROM users WHERE email").WithArgs("ghost@jwt.com").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindUserByEmail(context.Background(), "ghost@jwt.com")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserCredentials(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET email").WithArgs("u-1", "new@jwt.com", "hash2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, name, email, password FROM users WHERE id").WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password"}).
			AddRow("u-1", "pizza diner", "new@jwt.com", "hash2"))
	mock.ExpectQuery("SELECT role, object_id FROM user_roles").WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role", "object_id"}).AddRow("diner", nil))

	user, err := repo.UpdateUserCredentials(context.Background(), "u-1", "NEW@jwt.com", "hash2")
	require.NoError(t, err)
	assert.Equal(t, "new@jwt.com", user.Email)

	mock.ExpectExec("UPDATE users SET email").WillReturnError(&pq.Error{Code: "23505"})
	_, err = repo.UpdateUserCredentials(context.Background(), "u-1", "taken@jwt.com", "hash2")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	mock.ExpectExec("UPDATE users SET email").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = repo.UpdateUserCredentials(context.Background(), "missing", "a@jwt.com", "hash2")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFranchise_UnknownAdminPersistsNothing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, email FROM users").WithArgs("d@jwt.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow("u-1", "pizza diner", "d@jwt.com"))
	mock.ExpectQuery("SELECT id, name, email FROM users").WithArgs("ghost@jwt.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.CreateFranchise(context.Background(), models.FranchiseSpec{
		Name:   "pizzaPocket",
		Admins: []models.AdminRef{{Email: "d@jwt.com"}, {Email: "ghost@jwt.com"}},
	})
	require.Error(t, err)
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "unknown user for franchise admin", stdErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet(), "no franchise insert may run")
}

func TestCreateFranchise(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, email FROM users").WithArgs("d@jwt.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow("u-1", "pizza diner", "d@jwt.com"))
	mock.ExpectQuery("SELECT id, name, email FROM users").WithArgs("d@jwt.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow("u-1", "pizza diner", "d@jwt.com"))
	mock.ExpectExec("INSERT INTO franchises").WithArgs("id-1", "pizzaPocket").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs("u-1", "franchisee", "id-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	f, err := repo.CreateFranchise(context.Background(), models.FranchiseSpec{
		Name:   "pizzaPocket",
		Admins: []models.AdminRef{{Email: "d@jwt.com"}, {Email: "D@jwt.com"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", f.ID)
	require.NotNil(t, f.Admins)
	assert.Equal(t, []models.UserSummary{{ID: "u-1", Name: "pizza diner", Email: "d@jwt.com"}}, *f.Admins)
	assert.Empty(t, f.Stores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFranchise_DuplicateName(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO franchises").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateFranchise(context.Background(), models.FranchiseSpec{Name: "pizzaPocket"})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	_, err = repo.CreateFranchise(context.Background(), models.FranchiseSpec{Name: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFranchises_AdminVisibility(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	franchiseRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name"}).AddRow("f-1", "alpha").AddRow("f-2", "beta")
	}
	storeRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name"}).AddRow("s-1", "SLC")
	}

	// non-admin: no admin query runs, page size 1 reports more
	mock.ExpectQuery("SELECT id, name FROM franchises WHERE name LIKE").WithArgs("%", 2, 0).
		WillReturnRows(franchiseRows())
	mock.ExpectQuery("SELECT id, name FROM stores").WithArgs("f-1").WillReturnRows(storeRows())

	page, err := repo.ListFranchises(ctx, false, 1, 1, "")
	require.NoError(t, err)
	assert.True(t, page.More)
	require.Len(t, page.Franchises, 1)
	assert.Nil(t, page.Franchises[0].Admins)
	assert.Equal(t, "SLC", page.Franchises[0].Stores[0].Name)

	// admin: admins are always present, even when empty
	mock.ExpectQuery("SELECT id, name FROM franchises WHERE name LIKE").WithArgs("al%", 11, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("f-1", "alpha"))
	mock.ExpectQuery("SELECT id, name FROM stores").WithArgs("f-1").WillReturnRows(storeRows())
	mock.ExpectQuery("SELECT DISTINCT u.id, u.name, u.email FROM user_roles").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	page, err = repo.ListFranchises(ctx, true, 1, 10, "al*")
	require.NoError(t, err)
	assert.False(t, page.More)
	require.Len(t, page.Franchises, 1)
	require.NotNil(t, page.Franchises[0].Admins)
	assert.Empty(t, *page.Franchises[0].Admins)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFranchises_SecondPage(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, name FROM franchises WHERE name LIKE").WithArgs("%", 3, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	page, err := repo.ListFranchises(context.Background(), false, 2, 2, "")
	require.NoError(t, err)
	assert.Empty(t, page.Franchises)
	assert.NotNil(t, page.Franchises)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFranchise(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, name FROM franchises WHERE id").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("f-1", "alpha"))
	mock.ExpectQuery("SELECT id, name FROM stores").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery("SELECT DISTINCT u.id").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow("u-1", "pizza franchisee", "f@jwt.com"))

	f, err := repo.GetFranchise(context.Background(), "f-1")
	require.NoError(t, err)
	require.NotNil(t, f.Admins)
	assert.Equal(t, "f@jwt.com", (*f.Admins)[0].Email)

	mock.ExpectQuery("SELECT id, name FROM franchises WHERE id").WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetFranchise(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserFranchises(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT DISTINCT f.id, f.name FROM franchises").WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("f-1", "alpha"))
	mock.ExpectQuery("SELECT id, name FROM stores").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery("SELECT DISTINCT u.id").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow("u-1", "pizza franchisee", "f@jwt.com"))

	franchises, err := repo.ListUserFranchises(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, franchises, 1)
	assert.Equal(t, "alpha", franchises[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStore(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("INSERT INTO stores").WithArgs("id-1", "f-1", "SLC").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store, err := repo.CreateStore(context.Background(), "f-1", models.StoreSpec{Name: "SLC"})
	require.NoError(t, err)
	assert.Equal(t, models.Store{ID: "id-1", FranchiseID: "f-1", Name: "SLC"}, store)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err = repo.CreateStore(context.Background(), "gone", models.StoreSpec{Name: "SLC"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStore_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("DELETE FROM stores").WithArgs("s-9", "f-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteStore(context.Background(), "f-1", "s-9")
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "store not found", stdErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFranchise_Cascade(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stores WHERE franchise_id").WithArgs("f-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM user_roles WHERE role = 'franchisee'").WithArgs("f-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM franchises").WithArgs("f-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteFranchise(context.Background(), "f-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFranchise_MissingRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stores").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM user_roles").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM franchises").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteFranchise(context.Background(), "gone")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMenu(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO menu_items").
		WithArgs("id-1", "Veggie", "A garden of delight", "pizza1.png", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, title, description, image, price FROM menu_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "image", "price"}).
			AddRow("id-1", "Veggie", "A garden of delight", "pizza1.png", "0.0038"))

	item, err := repo.AddMenuItem(context.Background(), models.MenuItem{
		Title: "Veggie", Description: "A garden of delight", Image: "pizza1.png", Price: decimal.RequireFromString("0.0038"),
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", item.ID)

	menu, err := repo.GetMenu(context.Background())
	require.NoError(t, err)
	require.Len(t, menu, 1)
	assert.True(t, menu[0].Price.Equal(decimal.RequireFromString("0.0038")))

	_, err = repo.AddMenuItem(context.Background(), models.MenuItem{Title: "Bad", Price: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrder_SnapshotsMenu(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("s-1", "f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT id, title, price FROM menu_items").WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "price"}).AddRow("m-1", "Veggie", "0.0038"))
	mock.ExpectExec("INSERT INTO diner_orders").
		WithArgs("id-1", "u-1", "f-1", "s-1", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WithArgs("id-1", "m-1", "Veggie", sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	order, err := repo.AddOrder(context.Background(), "u-1", models.OrderSpec{
		FranchiseID: "f-1", StoreID: "s-1", Items: []models.OrderItemSpec{{MenuID: "m-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", order.ID)
	assert.Equal(t, models.OrderPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Veggie", order.Items[0].Description)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("0.0038")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddOrder_UnknownReferences(t *testing.T) {
	repo, mock := newMockRepo(t)
	spec := models.OrderSpec{FranchiseID: "f-1", StoreID: "s-1", Items: []models.OrderItemSpec{{MenuID: "m-404"}}}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("s-1", "f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.AddOrder(context.Background(), "u-1", spec)
	stdErr, _ := apperrors.As(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, "unknown store", stdErr.Message)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("s-1", "f-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT id, title, price FROM menu_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "price"}))
	mock.ExpectRollback()

	_, err = repo.AddOrder(context.Background(), "u-1", spec)
	stdErr, _ = apperrors.As(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, "unknown menu item", stdErr.Message)

	_, err = repo.AddOrder(context.Background(), "u-1", models.OrderSpec{FranchiseID: "f-1", StoreID: "s-1"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachFulfillment(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE diner_orders SET status").WithArgs("o-1", "fulfilled", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE diner_orders SET status").WithArgs("o-1", "failed", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AttachFulfillment(context.Background(), "o-1", models.OrderFulfilled, "jwt", ""))
	err := repo.AttachFulfillment(context.Background(), "o-1", models.OrderFailed, "", "http://report")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "resolved orders are not rewritten")

	err = repo.AttachFulfillment(context.Background(), "o-1", models.OrderPending, "", "")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrders_Pagination(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	cols := []string{"id", "franchise_id", "store_id", "status", "fulfillment_token", "report_url", "created_at"}
	itemCols := []string{"order_id", "menu_id", "description", "price"}

	mock.ExpectQuery("SELECT id, franchise_id, store_id, status").WithArgs("u-1", 1, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("o-2", "f-1", "s-1", "fulfilled", "jwt", "", now))
	mock.ExpectQuery("SELECT order_id, menu_id, description, price FROM order_items").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("o-2", "m-1", "Veggie", "0.0038"))
	mock.ExpectQuery("SELECT id, franchise_id, store_id, status").WithArgs("u-1", 1, 1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("o-1", "f-1", "s-1", "failed", "", "http://report", now.Add(-time.Minute)))
	mock.ExpectQuery("SELECT order_id, menu_id, description, price FROM order_items").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("o-1", "m-1", "Veggie", "0.0038"))
	mock.ExpectQuery("SELECT id, franchise_id, store_id, status").WithArgs("u-1", 1, 2).
		WillReturnRows(sqlmock.NewRows(cols))

	first, err := repo.ListOrders(context.Background(), "u-1", 1, 1)
	require.NoError(t, err)
	second, err := repo.ListOrders(context.Background(), "u-1", 2, 1)
	require.NoError(t, err)
	third, err := repo.ListOrders(context.Background(), "u-1", 3, 1)
	require.NoError(t, err)

	require.Len(t, first.Orders, 1)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, third.Orders)
	assert.Equal(t, "o-2", first.Orders[0].ID)
	assert.Equal(t, "o-1", second.Orders[0].ID)
	assert.Equal(t, models.OrderFailed, second.Orders[0].Status)
	assert.Equal(t, "http://report", second.Orders[0].ReportURL)
	assert.Len(t, second.Orders[0].Items, 1)
	assert.Equal(t, 2, second.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%", likePattern(""))
	assert.Equal(t, "%", likePattern("*"))
	assert.Equal(t, "pizza%", likePattern("pizza*"))
	assert.Equal(t, `50\%off`, likePattern("50%off"))
}
