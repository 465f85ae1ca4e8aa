package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shrimpy/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var userColumns = []string{"id", "email", "password", "status", "created_at", "updated_at"}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock, func() { sqlDB.Close() }
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug", BaseURL: "http://localhost:8080"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Auth:   config.AuthConfig{MinPasswordLength: 6, ConfirmExpireHours: 24},
	}
}

type fakeMailer struct {
	to   string
	link string
	err  error
}

func (m *fakeMailer) SendConfirmationEmail(to, link string) error {
	m.to, m.link = to, link
	return m.err
}

func hashPassword(t *testing.T, pw string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_SignUp_Validation(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := NewAuthService(db, testConfig(), &fakeMailer{})

	_, err := s.SignUp(context.Background(), "not-an-email", "secret1", "")
	assert.True(t, IsValidation(err))

	_, err = s.SignUp(context.Background(), "chef@example.com", "12345", "")
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "at least 6")

	// 校验失败不触发任何查询
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_SignUp_SendsConfirmation(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("chef@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO `email_confirmations`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mailer := &fakeMailer{}
	s := NewAuthService(db, testConfig(), mailer)
	user, err := s.SignUp(context.Background(), " Chef@Example.com ", "secret1", "http://localhost:8080/admin/login")
	require.NoError(t, err)

	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, "pending", user.Status)
	assert.Equal(t, "chef@example.com", mailer.to)
	assert.Contains(t, mailer.link, "http://localhost:8080/api/v1/auth/confirm?token=")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_SignUp_MailFailureRollsBack(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("chef@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO `email_confirmations`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	s := NewAuthService(db, testConfig(), &fakeMailer{err: errors.New("smtp down")})
	_, err := s.SignUp(context.Background(), "chef@example.com", "secret1", "")
	assert.EqualError(t, err, "smtp down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_SignUp_AutoConfirm(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("chef@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	cfg := testConfig()
	cfg.Auth.AutoConfirm = true
	mailer := &fakeMailer{}
	user, err := NewAuthService(db, cfg, mailer).SignUp(context.Background(), "chef@example.com", "secret1", "")
	require.NoError(t, err)
	assert.True(t, user.IsConfirmed())
	assert.Empty(t, mailer.to)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_SignUp_EmailTaken(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("chef@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "chef@example.com", "hash", "active", time.Now(), time.Now()))

	_, err := NewAuthService(db, testConfig(), &fakeMailer{}).SignUp(context.Background(), "chef@example.com", "secret1", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_SignIn(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("chef@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "chef@example.com", hashPassword(t, "secret1"), "active", time.Now(), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `sessions`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	session, err := NewAuthService(db, testConfig(), &fakeMailer{}).SignIn(context.Background(), "chef@example.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, session.ID, 36)
	assert.Equal(t, uint(1), session.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_SignIn_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		password string
		want     error
	}{
		{"unknown account", sqlmock.NewRows(userColumns), "secret1", ErrInvalidCredentials},
		{"wrong password", sqlmock.NewRows(userColumns).
			AddRow(1, "chef@example.com", hashPassword(t, "secret1"), "active", time.Now(), time.Now()), "wrong!!", ErrInvalidCredentials},
		{"unconfirmed", sqlmock.NewRows(userColumns).
			AddRow(1, "chef@example.com", hashPassword(t, "secret1"), "pending", time.Now(), time.Now()), "secret1", ErrEmailNotConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()

			mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("chef@example.com").WillReturnRows(tt.rows)

			session, err := NewAuthService(db, testConfig(), &fakeMailer{}).SignIn(context.Background(), "chef@example.com", tt.password)
			assert.Nil(t, session)
			assert.ErrorIs(t, err, tt.want)
			// 失败时不创建会话
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAuthService_Confirm(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	cols := []string{"id", "user_id", "email", "token", "redirect_to", "expires_at", "used", "created_at"}
	mock.ExpectQuery("SELECT .* FROM `email_confirmations`").WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 7, "chef@example.com", "tok", "/admin/login", time.Now().Add(time.Hour), false, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `email_confirmations` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	redirect, err := NewAuthService(db, testConfig(), &fakeMailer{}).Confirm(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "/admin/login", redirect)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_Confirm_Invalid(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	s := NewAuthService(db, testConfig(), &fakeMailer{})
	_, err := s.Confirm(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	cols := []string{"id", "user_id", "email", "token", "redirect_to", "expires_at", "used", "created_at"}
	mock.ExpectQuery("SELECT .* FROM `email_confirmations`").WithArgs("used").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 7, "chef@example.com", "used", "", time.Now().Add(time.Hour), true, time.Now()))
	_, err = s.Confirm(context.Background(), "used")
	assert.ErrorIs(t, err, ErrInvalidToken)

	mock.ExpectQuery("SELECT .* FROM `email_confirmations`").WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, 7, "chef@example.com", "expired", "", time.Now().Add(-time.Hour), false, time.Now()))
	_, err = s.Confirm(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrInvalidToken)

	mock.ExpectQuery("SELECT .* FROM `email_confirmations`").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = s.Confirm(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_HasRole(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `user_roles` WHERE user_id = \\? AND role = \\? LIMIT 1").
		WithArgs(1, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "created_at"}).AddRow(1, "admin", time.Now()))
	mock.ExpectQuery("SELECT .* FROM `user_roles`").
		WithArgs(2, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "created_at"}))

	s := NewAuthService(db, testConfig(), &fakeMailer{})
	ok, err := s.IsAdmin(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsAdmin(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_Resolve(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	sessionCols := []string{"id", "user_id", "expires_at", "created_at"}
	mock.ExpectQuery("SELECT .* FROM `sessions`").WithArgs("sid").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("sid", 1, time.Now().Add(time.Hour), time.Now()))
	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs(1).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "chef@example.com", "hash", "active", time.Now(), time.Now()))

	session, err := NewAuthService(db, testConfig(), &fakeMailer{}).Resolve(context.Background(), "sid")
	require.NoError(t, err)
	assert.Equal(t, "chef@example.com", session.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_Resolve_ExpiredSignsOut(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	sessionCols := []string{"id", "user_id", "expires_at", "created_at"}
	mock.ExpectQuery("SELECT .* FROM `sessions`").WithArgs("old").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("old", 1, time.Now().Add(-time.Minute), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `sessions`").WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := NewAuthService(db, testConfig(), &fakeMailer{}).Resolve(context.Background(), "old")
	assert.ErrorIs(t, err, ErrInvalidSession)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_SignOut(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `sessions`").WithArgs("sid").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewAuthService(db, testConfig(), &fakeMailer{})
	require.NoError(t, s.SignOut(context.Background(), "sid"))
	// 无会话时直接成功
	require.NoError(t, s.SignOut(context.Background(), ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_GrantRole(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("chef@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(4, "chef@example.com", "hash", "active", time.Now(), time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `user_roles`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewAuthService(db, testConfig(), &fakeMailer{}).GrantRole(context.Background(), "Chef@example.com", "admin"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_GrantRole_UnknownUser(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	err := NewAuthService(db, testConfig(), &fakeMailer{}).GrantRole(context.Background(), "ghost@example.com", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSafeRedirect(t *testing.T) {
	s := NewAuthService(nil, testConfig(), nil)
	assert.Equal(t, "/admin/login", s.safeRedirect(""))
	assert.Equal(t, "/admin", s.safeRedirect("/admin"))
	assert.Equal(t, "http://localhost:8080/admin/login", s.safeRedirect("http://localhost:8080/admin/login"))
	assert.Equal(t, "/admin/login", s.safeRedirect("https://evil.example.com/"))
	assert.Equal(t, "/admin/login", s.safeRedirect("//evil.example.com"))
	assert.Equal(t, "/admin/login", s.safeRedirect("/\\evil.example.com"))
	assert.Equal(t, "/admin/login", s.safeRedirect("\\\\evil.example.com"))
	assert.Equal(t, "/admin/login", s.safeRedirect("/\t/evil.example.com"))
	assert.Equal(t, "/admin/login", s.safeRedirect("http://localhost:8080/\\evil.example.com"))
	assert.Equal(t, "/admin/login?notice=confirmed", s.safeRedirect("/admin/login?notice=confirmed"))
}
