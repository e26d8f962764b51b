package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	userColumns = []string{
		"id", "name", "username", "email", "password_hash", "role", "is_active",
		"created_at", "updated_at", "last_login",
		"phone", "address", "avatar_url", "bio", "department", "course", "year_level", "section",
		"theme",
	}
	userSelect = "SELECT " + strings.Join(userColumns, ", ") + " FROM users"

	userOrdering = map[string]string{
		"name":       "name",
		"username":   "username",
		"email":      "email",
		"role":       "role",
		"is_active":  "is_active",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	PasswordHash []byte      `db:"password_hash"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
	Phone        null.String `db:"phone"`
	Address      null.String `db:"address"`
	AvatarURL    null.String `db:"avatar_url"`
	Bio          null.String `db:"bio"`
	Department   null.String `db:"department"`
	Course       null.String `db:"course"`
	YearLevel    null.Int    `db:"year_level"`
	Section      null.String `db:"section"`
	Theme        string      `db:"theme"`
}

// values returns the row values in userColumns order.
func (r userRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Name, r.Username, r.Email, r.PasswordHash, r.Role, r.IsActive,
		r.CreatedAt, r.UpdatedAt, r.LastLogin,
		r.Phone, r.Address, r.AvatarURL, r.Bio, r.Department, r.Course, r.YearLevel, r.Section,
		r.Theme,
	}
}

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repo{exec: exec}}
}

func (repo userRepository) toRow(usr user.User) userRow {
	theme := usr.Appearance.Theme
	if theme == "" {
		theme = user.ThemeLight
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     nullString(usr.Username),
		Email:        nullString(usr.Email),
		PasswordHash: usr.PasswordHash,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    nullTime(usr.LastLogin),
		Phone:        nullString(usr.Profile.Phone),
		Address:      nullString(usr.Profile.Address),
		AvatarURL:    nullString(usr.Profile.AvatarURL),
		Bio:          nullString(usr.Profile.Bio),
		Department:   nullString(usr.Profile.Department),
		Course:       nullString(usr.Profile.Course),
		YearLevel:    nullInt(usr.Profile.YearLevel),
		Section:      nullString(usr.Profile.Section),
		Theme:        theme,
	}
}

func (repo userRepository) fromRow(r userRow) user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		Profile: user.Profile{
			Phone:      r.Phone.String,
			Address:    r.Address.String,
			AvatarURL:  r.AvatarURL.String,
			Bio:        r.Bio.String,
			Department: r.Department.String,
			Course:     r.Course.String,
			YearLevel:  intPtr(r.YearLevel),
			Section:    r.Section.String,
		},
		Appearance: user.Appearance{Theme: r.Theme},
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		LastLogin:  timePtr(r.LastLogin),
	}
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.fromRow(r))
	}
	return users
}

// trapUniqueErr maps unique index violations to user.ErrUsernameExists or user.ErrEmailExists
func (repo userRepository) trapUniqueErr(err error, msg string) error {
	if isUniqueViolation(err) {
		switch {
		case strings.Contains(err.Error(), "username"):
			return user.ErrUsernameExists
		case strings.Contains(err.Error(), "email"):
			return user.ErrEmailExists
		default:
			return user.ErrUserExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs []string, exec ...core.DBExecutor) error {
	if username == "" && email == "" {
		return nil
	}

	var w where
	w.add("(username = ? OR email = ?)", nullString(username), nullString(email))
	if len(excludedIDs) > 0 {
		w.add("id NOT IN (?)", excludedIDs)
	}

	var found []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	if err := selectContext(ctx, repo.getExec(exec), &found, "SELECT username, email FROM users"+w.String(), w.args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, u := range found {
		if username != "" && u.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(found) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	if _, err := execContext(ctx, repo.getExec(exec), insertStmt("users", userColumns), row.values()...); err != nil {
		return user.User{}, repo.trapUniqueErr(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where

	if filter != nil {
		if len(filter.IDs) > 0 {
			w.add("id IN (?)", filter.IDs)
		}
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			w.add("(LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?)", val, val, val)
		}
		if len(filter.Roles) > 0 {
			w.add("role IN (?)", filter.Roles)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	query := userSelect + w.String() + orderBy(ordering, userOrdering, "name ASC, id ASC")

	var rows []userRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.fromRows(rows), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != nil:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		w.add("(username = ? OR email = ?)", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := getContext(ctx, repo.getExec(exec), &row, userSelect+w.String()+" LIMIT 1", w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	query := "UPDATE users SET " + setList(userColumns[1:]) + " WHERE id = ?"
	args := append(row.values()[1:], row.ID)

	cnt, err := execContext(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "updating user")
	}
	if cnt == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cnt, err := execContext(ctx, repo.getExec(exec), "DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
