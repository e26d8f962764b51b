package user_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/tests"
)

const strongPwd = "Sh0ule!Secure"

func setup(t *testing.T) (user.Service, user.Repository, *core.Config) {
	db := testutil.PrepareDB(t)
	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	core.ParseEmailTemplates(conf, logger)
	repo := sqlxrepos.NewUserRepository(db)
	svc := user.NewServiceMock(repo, emailsvc.NewConsoleServiceMock(conf, logger), conf, logger)
	return svc, repo, conf
}

func fieldTags(err error) map[string]string {
	tags := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			tags[fe.Field()] = fe.Tag()
		}
	}
	return tags
}

func TestNewUser_Validate(t *testing.T) {
	svc, repo, _ := setup(t)
	validate, _ := testutil.NewValidate()
	ctx := context.Background()

	testutil.CreateUser(t, repo, "Awe", "awe", "awe@test.cd", "", user.RoleStudent, true)

	newUser := func(uname, email, role, pwd string) user.NewUser {
		return user.NewUser{Name: "New User", Username: uname, Email: email, Role: role, Password: pwd, PasswordConfirm: pwd}
	}

	tests := []struct {
		name     string
		nu       user.NewUser
		wantTags map[string]string
	}{
		{name: "valid", nu: newUser("new", "new@test.cd", user.RoleStudent, strongPwd), wantTags: map[string]string{}},
		{name: "username only", nu: newUser("new", "", user.RoleFaculty, strongPwd), wantTags: map[string]string{}},
		{
			name:     "no username nor email",
			nu:       newUser("", "", user.RoleStudent, strongPwd),
			wantTags: map[string]string{"username": "username_or_email", "email": "username_or_email"},
		},
		{name: "bad role", nu: newUser("new", "", "principal", strongPwd), wantTags: map[string]string{"role": "role"}},
		{name: "short password", nu: newUser("new", "", user.RoleStudent, "Ab1!"), wantTags: map[string]string{"password": "pwdminlen"}},
		{name: "password with space", nu: newUser("new", "", user.RoleStudent, "Ab1! cdefg"), wantTags: map[string]string{"password": "pwdnospace"}},
		{name: "numeric password", nu: newUser("new", "", user.RoleStudent, "1234567890"), wantTags: map[string]string{"password": "pwdnotallnum"}},
		{name: "simple password", nu: newUser("new", "", user.RoleStudent, "abcdefgh1"), wantTags: map[string]string{"password": "pwdcplx"}},
		{name: "password similar to username", nu: newUser("newuser12", "", user.RoleStudent, "NewUser12!"), wantTags: map[string]string{"password": "pwdtoosim"}},
		{name: "common password", nu: newUser("new", "", user.RoleStudent, "P@ssw0rd1"), wantTags: map[string]string{"password": "pwdnocommon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, validate, svc)
			assert.Equal(t, tt.wantTags, fieldTags(err), "err: %v", err)
		})
	}

	t.Run("duplicate username fails", func(t *testing.T) {
		nu := newUser(" AWE ", "other@test.cd", user.RoleStudent, strongPwd)
		err := nu.Validate(ctx, validate, svc)
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "username", verr.Fields[0].Field)
	})

	t.Run("duplicate email fails", func(t *testing.T) {
		nu := newUser("other", "Awe@Test.cd", user.RoleStudent, strongPwd)
		err := nu.Validate(ctx, validate, svc)
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "email", verr.Fields[0].Field)
	})
}

func TestService_CreateAndUpdate(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	yl := 3
	created, err := svc.Create(ctx, user.NewUser{
		Name: "Awe", Username: "awe", Email: "awe@test.cd", Role: user.RoleStudent, Password: strongPwd,
		Profile: user.NewProfile{Course: core.StringPtr("CS"), YearLevel: &yl},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, user.ThemeLight, created.Appearance.Theme)
	assert.Equal(t, "CS", created.Profile.Course)
	assert.NoError(t, created.CheckPassword(strongPwd))

	t.Run("creating a user with a duplicate username fails", func(t *testing.T) {
		_, err := svc.Create(ctx, user.NewUser{Name: "Dup", Username: "awe", Role: user.RoleStudent, Password: strongPwd})
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, user.ErrUsernameExists, verr.Err)
	})

	king, err := svc.Create(ctx, user.NewUser{Name: "King", Email: "king@test.cd", Role: user.RoleFaculty, Password: strongPwd})
	require.NoError(t, err)

	t.Run("update", func(t *testing.T) {
		inactive := false
		updated, err := svc.Update(ctx, created, user.UpdateUser{
			Name: "Awe B", Username: "awe", Email: "awe@test.cd", IsActive: &inactive,
			Profile: user.NewProfile{Section: core.StringPtr("B"), YearLevel: new(int)},
		})
		require.NoError(t, err)
		assert.Equal(t, "Awe B", updated.Name)
		assert.False(t, updated.IsActive)
		assert.Equal(t, "CS", updated.Profile.Course)
		assert.Equal(t, "B", updated.Profile.Section)
		assert.Nil(t, updated.Profile.YearLevel)

		_, err = svc.Update(ctx, king, user.UpdateUser{Name: king.Name, Username: "awe", Email: king.Email})
		assert.IsType(t, &core.ValidationError{}, err)
	})

	t.Run("last login", func(t *testing.T) {
		usr, err := svc.SetLastLogin(ctx, king)
		require.NoError(t, err)
		require.NotNil(t, usr.LastLogin)

		got, err := svc.GetByUsernameOrEmail(ctx, " KING@test.cd ")
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		assert.True(t, usr.LastLogin.Equal(*got.LastLogin))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, created.ID, king.ID))
		_, err := svc.GetByID(ctx, created.ID)
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestService_PasswordReset(t *testing.T) {
	svc, repo, conf := setup(t)
	ctx := context.Background()

	emailsvc.ClearSentMessages()
	t.Cleanup(emailsvc.ClearSentMessages)

	awe := testutil.CreateUser(t, repo, "Awe", "awe", "awe@test.cd", strongPwd, user.RoleStudent, true)
	testutil.CreateUser(t, repo, "Gone", "gone", "gone@test.cd", strongPwd, user.RoleStudent, false)

	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "nobody@test.cd"))
	assert.Equal(t, user.ErrNotFound, svc.RequestPasswordReset(ctx, "gone@test.cd"))
	assert.Empty(t, emailsvc.SentMessages())

	require.NoError(t, svc.RequestPasswordReset(ctx, "AWE@test.cd"))
	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "awe@test.cd", msgs[0].To[0].Address)

	link := regexp.MustCompile(regexp.QuoteMeta(conf.FrontendBaseURL) + `/password-reset/([^/\s]+)/([^/\s]+)`)
	match := link.FindStringSubmatch(msgs[0].TextContent)
	require.Len(t, match, 3, "reset link not found in %q", msgs[0].TextContent)
	uid, token := match[1], match[2]
	assert.Equal(t, user.EncodeUID(awe), uid)

	newPwd := "N3w!Passphrase"
	tests := []struct {
		name      string
		data      user.ResetUserPassword
		wantField string
	}{
		{name: "invalid uid", data: user.ResetUserPassword{UID: "lol", Token: token, Password: newPwd}, wantField: "uid"},
		{name: "invalid token", data: user.ResetUserPassword{UID: uid, Token: "lol-lol", Password: newPwd}, wantField: "token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(ctx, tt.data)
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}

	require.NoError(t, svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd}))
	got, err := svc.GetByID(ctx, awe.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))

	t.Run("tokens are single use", func(t *testing.T) {
		err := svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "An0ther!Passphrase"})
		assert.IsType(t, &core.ValidationError{}, err)
	})
}
