package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/models"
)

// memStore backs both the credential store and the facade in tests.
type memStore struct {
	mu         sync.Mutex
	seq        int
	users      map[string]models.UserRecord
	franchises map[string]models.Franchise
	menu       []models.MenuItem
	orders     []models.Order
}

func newMemStore() *memStore {
	return &memStore{users: map[string]models.UserRecord{}, franchises: map[string]models.Franchise{}}
}

func (m *memStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) CreateUser(_ context.Context, rec models.UserRecord) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == rec.Email {
			return models.User{}, apperrors.NewConflictError("email already registered")
		}
	}
	rec.ID = m.id("u")
	m.users[rec.ID] = rec
	return rec.User, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (models.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.UserRecord{}, apperrors.NewNotFoundError("user not found")
}

func (m *memStore) GetUser(_ context.Context, id string) (models.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.UserRecord{}, apperrors.NewNotFoundError("user not found")
	}
	return u, nil
}

func (m *memStore) UpdateUserCredentials(_ context.Context, id, email, hash string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, apperrors.NewNotFoundError("user not found")
	}
	u.Email = email
	u.PasswordHash = hash
	m.users[id] = u
	return u.User, nil
}

func (m *memStore) CreateFranchise(_ context.Context, spec models.FranchiseSpec) (models.Franchise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admins := []models.UserSummary{}
	var adminIDs []string
	for _, ref := range spec.Admins {
		var found *models.UserRecord
		for _, u := range m.users {
			if u.Email == models.NormalizeEmail(ref.Email) {
				u := u
				found = &u
			}
		}
		if found == nil {
			return models.Franchise{}, apperrors.NewUnknownFranchiseAdminError(ref.Email)
		}
		admins = append(admins, found.Summary())
		adminIDs = append(adminIDs, found.ID)
	}
	for _, f := range m.franchises {
		if f.Name == spec.Name {
			return models.Franchise{}, apperrors.NewConflictError("franchise name already exists")
		}
	}
	f := models.Franchise{ID: m.id("f"), Name: spec.Name, Admins: &admins, Stores: []models.Store{}}
	m.franchises[f.ID] = f
	for _, id := range adminIDs {
		u := m.users[id]
		u.Roles = append(u.Roles, models.RoleAssignment{Role: models.RoleFranchisee, ObjectID: f.ID})
		m.users[id] = u
	}
	return f, nil
}

func (m *memStore) GetFranchise(_ context.Context, id string) (models.Franchise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.franchises[id]
	if !ok {
		return models.Franchise{}, apperrors.NewNotFoundError("franchise not found")
	}
	return f, nil
}

func (m *memStore) ListFranchises(_ context.Context, includeAdmins bool, page, pageSize int, nameFilter string) (models.FranchisePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Franchise
	for _, f := range m.franchises {
		if nameFilter == "" || nameFilter == "*" || strings.HasPrefix(f.Name, strings.TrimSuffix(nameFilter, "*")) {
			if !includeAdmins {
				f.Admins = nil
			}
			all = append(all, f)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	result := models.FranchisePage{Franchises: []models.Franchise{}}
	if start >= len(all) {
		return result, nil
	}
	end := start + pageSize
	if end < len(all) {
		result.More = true
	} else {
		end = len(all)
	}
	result.Franchises = append(result.Franchises, all[start:end]...)
	return result, nil
}

func (m *memStore) ListUserFranchises(_ context.Context, userID string) ([]models.Franchise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Franchise
	for _, ra := range m.users[userID].Roles {
		if f, ok := m.franchises[ra.ObjectID]; ok && ra.Role == models.RoleFranchisee {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) DeleteFranchise(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.franchises[id]; !ok {
		return apperrors.NewNotFoundError("franchise not found")
	}
	delete(m.franchises, id)
	for uid, u := range m.users {
		roles := u.Roles[:0:0]
		for _, ra := range u.Roles {
			if !(ra.Role == models.RoleFranchisee && ra.ObjectID == id) {
				roles = append(roles, ra)
			}
		}
		u.Roles = roles
		m.users[uid] = u
	}
	return nil
}

func (m *memStore) CreateStore(_ context.Context, franchiseID string, spec models.StoreSpec) (models.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.franchises[franchiseID]
	if !ok {
		return models.Store{}, apperrors.NewNotFoundError("franchise not found")
	}
	s := models.Store{ID: m.id("s"), FranchiseID: franchiseID, Name: spec.Name}
	f.Stores = append(f.Stores, s)
	m.franchises[franchiseID] = f
	return s, nil
}

func (m *memStore) DeleteStore(_ context.Context, franchiseID, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.franchises[franchiseID]
	if !ok {
		return apperrors.NewNotFoundError("franchise not found")
	}
	for i, s := range f.Stores {
		if s.ID == storeID {
			f.Stores = append(f.Stores[:i:i], f.Stores[i+1:]...)
			m.franchises[franchiseID] = f
			return nil
		}
	}
	return apperrors.NewNotFoundError("store not found")
}

func (m *memStore) AddMenuItem(_ context.Context, item models.MenuItem) (models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.id("m")
	m.menu = append(m.menu, item)
	return item, nil
}

func (m *memStore) GetMenu(context.Context) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.MenuItem{}, m.menu...), nil
}

func (m *memStore) ListOrders(_ context.Context, dinerID string, page, pageSize int) (models.OrderPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := models.OrderPage{DinerID: dinerID, Orders: []models.Order{}, Page: page}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].DinerID == dinerID {
			result.Orders = append(result.Orders, m.orders[i])
		}
	}
	start := (page - 1) * pageSize
	if start >= len(result.Orders) {
		result.Orders = []models.Order{}
		return result, nil
	}
	end := start + pageSize
	if end > len(result.Orders) {
		end = len(result.Orders)
	}
	result.Orders = result.Orders[start:end]
	return result, nil
}

// Place records the order as fulfilled unless fail is set.
type fakePlacer struct {
	store *memStore
	fail  bool
}

func (p *fakePlacer) Place(_ context.Context, diner models.User, spec models.OrderSpec) (models.Order, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	order := models.Order{ID: p.store.id("o"), DinerID: diner.ID, FranchiseID: spec.FranchiseID, StoreID: spec.StoreID, Status: models.OrderFulfilled}
	if p.fail {
		order.Status = models.OrderFailed
	}
	p.store.orders = append(p.store.orders, order)
	if p.fail {
		return order, apperrors.NewDependencyError("factory", "Failed to fulfill order at factory", nil)
	}
	return order, nil
}

type flagSwitch struct {
	mu sync.Mutex
	on bool
}

func (f *flagSwitch) Set(enabled bool) {
	f.mu.Lock()
	f.on = enabled
	f.mu.Unlock()
}

func (f *flagSwitch) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

type countingRecorder struct {
	success, failure, open int
}

func (r *countingRecorder) AuthAttempt(ok bool) {
	if ok {
		r.success++
	} else {
		r.failure++
	}
}
func (r *countingRecorder) SessionOpened() { r.open++ }
func (r *countingRecorder) SessionClosed() { r.open-- }
