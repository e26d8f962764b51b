package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
	RoleStudent = "student"
)

// Themes
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

var (
	AllRoles = []string{RoleAdmin, RoleFaculty, RoleStudent}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleFaculty: 20,
		RoleStudent: 10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Faculty", Value: RoleFaculty},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Profile holds the personal details of a User.
// Department applies to faculty; Course, YearLevel and Section to students and are matched
// against schedule targeting.
type Profile struct {
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	AvatarURL  string `json:"avatar_url"`
	Bio        string `json:"bio"`
	Department string `json:"department"`
	Course     string `json:"course"`
	YearLevel  *int   `json:"year_level"`
	Section    string `json:"section"`
}

type Appearance struct {
	Theme string `json:"theme"`
}

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	PasswordHash []byte     `json:"-"`
	Profile      Profile    `json:"profile"`
	Appearance   Appearance `json:"appearance"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsFaculty() bool { return u.Role == RoleFaculty }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewProfile defines the profile information that may be provided when creating or updating a User.
type NewProfile struct {
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	Address    *string `json:"address"`
	AvatarURL  *string `json:"avatar_url" validate:"omitempty,url"`
	Bio        *string `json:"bio" validate:"omitempty,max=1000"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Course     *string `json:"course" validate:"omitempty,max=100"`
	YearLevel  *int    `json:"year_level" validate:"omitempty,min=1,max=12"`
	Section    *string `json:"section" validate:"omitempty,max=50"`
}

// apply sets the provided fields on p.
func (np NewProfile) apply(p *Profile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = core.CleanString(*src)
		}
	}
	set(&p.Phone, np.Phone)
	set(&p.Address, np.Address)
	set(&p.AvatarURL, np.AvatarURL)
	set(&p.Bio, np.Bio)
	set(&p.Department, np.Department)
	set(&p.Course, np.Course)
	set(&p.Section, np.Section)
	if np.YearLevel != nil {
		if *np.YearLevel == 0 {
			p.YearLevel = nil
		} else {
			yl := *np.YearLevel
			p.YearLevel = &yl
		}
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string     `json:"name" validate:"required"`
	Username        string     `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Role            string     `json:"role" validate:"required,role"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"password_confirm" validate:"required,eqfield=Password"`
	Profile         NewProfile `json:"profile"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string     `json:"name"`
	Username        string     `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string     `json:"email" validate:"omitempty,email"`
	IsActive        *bool      `json:"is_active"`
	Role            string     `json:"role" validate:"omitempty,role"`
	Password        string     `json:"password" validate:"omitempty"`
	PasswordConfirm string     `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	Profile         NewProfile `json:"profile"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	uu.Role = core.CleanString(uu.Role, true /* lower */)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}

type QueryFilter struct {
	IDs         []string `query:"id"`
	Search      string   `query:"search"`
	Roles       []string `query:"role"`
	IsActive    *bool    `query:"is_active"`
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.IDs == nil && qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	for i, role := range qf.Roles {
		qf.Roles[i] = core.CleanString(role, true /* lower */)
	}
}
