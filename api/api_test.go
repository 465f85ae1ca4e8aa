package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shrimpy/config"
	"shrimpy/middleware"
	"shrimpy/models"
	"shrimpy/service"
	"shrimpy/web"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Auth:   config.AuthConfig{MinPasswordLength: 6},
		Restaurant: config.RestaurantConfig{
			Name:    "Shrimpy Seafood",
			Tagline: "Fresh from the Sea to Your Table",
			Address: "12 Harbour Road",
			Phone:   "+1 555 0100",
		},
	}
}

// initTestConfig 设置全局配置与 JWT 密钥，返回恢复函数
func initTestConfig(t *testing.T) *config.Config {
	cfg := testConfig()
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	t.Cleanup(func() { config.GlobalConfig = nil })
	return cfg
}

type fakeFetcher struct {
	mu    sync.Mutex
	items []models.MenuItem
	err   error
	calls int
}

func (f *fakeFetcher) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.MenuItem(nil), f.items...), nil
}

func sampleItems() []models.MenuItem {
	return []models.MenuItem{
		{ID: "1", Name: "Grilled Sea Bass", Price: decimal.RequireFromString("24.9"), Category: "Main Course"},
		{ID: "2", Name: "Lobster Bisque", Price: decimal.RequireFromString("12"), Category: "Soup"},
		{ID: "3", Name: "Jumbo Shrimp Platter", Price: decimal.RequireFromString("32.5"), Category: "Main Course", ImageURL: "/uploads/dish-photos/1.jpg"},
	}
}

type fakeAuth struct {
	sessions  map[string]*service.Session
	admins    map[uint]bool
	signUpErr error
	signInErr error
	confirm   map[string]string
	signedOut []string
	signUps   []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		sessions: map[string]*service.Session{},
		admins:   map[uint]bool{},
		confirm:  map[string]string{},
	}
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password, redirectTo string) (*models.User, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	f.signUps = append(f.signUps, email)
	return &models.User{ID: 9, Email: email, Status: models.UserStatusPending}, nil
}

func (f *fakeAuth) Confirm(ctx context.Context, token string) (string, error) {
	if r, ok := f.confirm[token]; ok {
		return r, nil
	}
	return "", service.ErrInvalidToken
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*service.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := &service.Session{ID: "sid-" + email, UserID: 1, Email: email, ExpiresAt: time.Now().Add(time.Hour)}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeAuth) SignOut(ctx context.Context, id string) error {
	f.signedOut = append(f.signedOut, id)
	delete(f.sessions, id)
	return nil
}

func (f *fakeAuth) Resolve(ctx context.Context, id string) (*service.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, service.ErrInvalidSession
}

func (f *fakeAuth) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	return f.admins[userID], nil
}

// bearer 为会话签发令牌
func bearer(t *testing.T, s *service.Session) string {
	token, err := middleware.GenerateToken(s.ID, s.UserID, s.Email, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func newEngine(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	tmpl, err := web.Templates()
	require.NoError(t, err)
	r.SetHTMLTemplate(tmpl)
	return r
}

var errStore = errors.New("connection refused")
