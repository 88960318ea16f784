package user

import (
	"path/filepath"
	"testing"

	"github.com/daybook-app/core/internal/database"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return NewService(db)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)

	u, err := svc.Register(&RegisterDTO{Username: "ana", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ana", u.Name) // defaults to the username
	assert.NotEqual(t, "correct-horse", u.Password)

	token, logged, err := svc.Login("ana", "correct-horse", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, logged.ID)
	require.NotNil(t, logged.LastLoginTime)
	assert.Equal(t, "10.0.0.1", logged.LastLoginIP)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(&RegisterDTO{Username: "ana", Password: "short"})
	assert.Error(t, err)

	_, err = svc.Register(&RegisterDTO{Username: "  ", Password: "long-enough"})
	assert.Error(t, err)

	_, err = svc.Register(&RegisterDTO{Username: "ana", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.Register(&RegisterDTO{Username: "ana", Password: "another-pass"})
	assert.Error(t, err)
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(&RegisterDTO{Username: "ana", Password: "correct-horse"})
	require.NoError(t, err)

	_, _, err = svc.Login("ana", "wrong", "")
	assert.Error(t, err)
	_, _, err = svc.Login("nobody", "correct-horse", "")
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	u, err := svc.Register(&RegisterDTO{Username: "ana", Password: "correct-horse"})
	require.NoError(t, err)

	require.Error(t, svc.ChangePassword(u.ID, "wrong", "replacement-pass"))
	require.Error(t, svc.ChangePassword(u.ID, "correct-horse", "tiny"))
	require.NoError(t, svc.ChangePassword(u.ID, "correct-horse", "replacement-pass"))

	_, _, err = svc.Login("ana", "correct-horse", "")
	assert.Error(t, err)
	_, _, err = svc.Login("ana", "replacement-pass", "")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService(t)
	u, err := svc.Register(&RegisterDTO{Username: "ana", Password: "correct-horse"})
	require.NoError(t, err)

	name := "Ana M."
	mail := "ana@example.com"
	updated, err := svc.UpdateProfile(u.ID, &UpdateProfileDTO{Name: &name, Mail: &mail})
	require.NoError(t, err)
	assert.Equal(t, "Ana M.", updated.Name)
	assert.Equal(t, "ana@example.com", updated.Mail)

	missing, err := svc.UpdateProfile("no-such-id", &UpdateProfileDTO{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, missing)
}
