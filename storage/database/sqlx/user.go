package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/user"
)

var userOrderable = set("name", "email", "role", "is_active", "created_at", "last_login")

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return repo.db
}

func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) selectUsers() string {
	return fmt.Sprintf("SELECT %s FROM app_user", strings.Join(userColumns, ", "))
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	q := "SELECT EXISTS (SELECT 1 FROM app_user WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		cond, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		q += cond
		args = append(args, inArgs...)
	}
	q += ")"

	var exists bool
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	q := fmt.Sprintf("INSERT INTO app_user (%s) VALUES (:%s)",
		strings.Join(userColumns, ", "), strings.Join(userColumns, ", :"))
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, toUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, daycareID, id string, exec ...core.DBExecutor) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	if _, err := uuid.Parse(daycareID); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := repo.db.Rebind(repo.selectUsers() + " WHERE id = ? AND daycare_id = ?")
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id, daycareID); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return row.user(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	q := repo.db.Rebind(repo.selectUsers() + " WHERE email = ?")
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return row.user(), nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	if filter.DaycareID == "" {
		return nil, core.ErrTenantRequired
	}
	if _, err := uuid.Parse(filter.DaycareID); err != nil {
		return []user.User{}, nil
	}

	q, args, err := filterUsersQuery(filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

// filterUsersQuery builds the SELECT of the users of filter.DaycareID. Placeholders are not rebound.
func filterUsersQuery(filter user.QueryFilter, ordering []core.DBOrdering) (string, []interface{}, error) {
	where := []string{"daycare_id = ?"}
	args := []interface{}{filter.DaycareID}

	// users with Name or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(name ILIKE ? OR email ILIKE ?)")
		args = append(args, val, val)
	}
	if len(filter.Roles) > 0 {
		cond, inArgs, err := sqlx.In("role IN (?)", filter.Roles)
		if err != nil {
			return "", nil, err
		}
		where = append(where, cond)
		args = append(args, inArgs...)
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if userOrderable[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		orderList = append(orderList, "created_at ASC")
	}

	q := fmt.Sprintf("SELECT %s FROM app_user WHERE %s ORDER BY %s",
		strings.Join(userColumns, ", "), strings.Join(where, " AND "), strings.Join(append(orderList, "id ASC"), ", "))
	return q, args, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	sets := "name = :name, role = :role, is_active = :is_active, updated_at = :updated_at, last_login = :last_login"
	if usr.PasswordHash != nil {
		sets += ", password_hash = :password_hash"
	}
	q := "UPDATE app_user SET " + sets + " WHERE id = :id AND daycare_id = :daycare_id"

	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
