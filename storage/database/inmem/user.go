package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

// NewUserRepository returns a user.Repository sharing db with the record store.
// Given the executor of a record transaction, its writes commit or roll back with it.
func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	t, done := repo.db.acquire(txTables(exec), false)
	defer done()

	for _, usr := range t.user {
		if usr.Email == email && !isExcluded(usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	t, done := repo.db.acquire(txTables(exec), true)
	defer done()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	t.user[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, daycareID, id string, exec ...core.DBExecutor) (user.User, error) {
	t, done := repo.db.acquire(txTables(exec), false)
	defer done()

	if usr, ok := t.user[id]; ok && usr.DaycareID == daycareID {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	t, done := repo.db.acquire(txTables(exec), false)
	defer done()

	for _, usr := range t.user {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	if filter.DaycareID == "" {
		return nil, core.ErrTenantRequired
	}

	t, done := repo.db.acquire(txTables(exec), false)
	defer done()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0)
	for _, usr := range t.user {
		if usr.DaycareID != filter.DaycareID {
			continue
		}
		if search != "" && !(strings.Contains(strings.ToLower(usr.Name), search) || strings.Contains(usr.Email, search)) {
			continue
		}
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, usr.Role) {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, usr)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, o := range ordering {
			vi, vj := userOrderValue(users[i], o.Field), userOrderValue(users[j], o.Field)
			if vi == vj {
				continue
			}
			if o.Ascending {
				return vi < vj
			}
			return vi > vj
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	t, done := repo.db.acquire(txTables(exec), true)
	defer done()

	orig, ok := t.user[usr.ID]
	if !ok || orig.DaycareID != usr.DaycareID {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	usr.CreatedAt = orig.CreatedAt
	t.user[usr.ID] = usr
	return usr, nil
}

func userOrderValue(usr user.User, field string) string {
	switch field {
	case "name":
		return strings.ToLower(usr.Name)
	case "email":
		return usr.Email
	case "role":
		return usr.Role
	case "created_at":
		return usr.CreatedAt.UTC().Format(tsFmt)
	case "last_login":
		return usr.LastLogin.UTC().Format(tsFmt)
	}
	return ""
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}
