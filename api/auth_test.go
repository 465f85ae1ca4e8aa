package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shrimpy/middleware"
	"shrimpy/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(t *testing.T, auth *fakeAuth) *gin.Engine {
	r := newEngine(t)
	r.Use(middleware.LoadSession(auth))
	h := NewAuthHandler(auth)
	g := r.Group("/api/v1/auth")
	g.POST("/sign-up", h.SignUp)
	g.POST("/sign-in", h.SignIn)
	g.POST("/sign-out", h.SignOut)
	g.GET("/session", middleware.RequireSession(middleware.APIMode), h.Session)
	g.GET("/confirm", h.Confirm)
	return r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_SignUp(t *testing.T) {
	initTestConfig(t)
	auth := newFakeAuth()
	r := authRouter(t, auth)

	w := postJSON(r, "/api/v1/auth/sign-up", SignUpRequest{Email: "chef@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), MsgSignUpSuccess)
	assert.Equal(t, []string{"chef@example.com"}, auth.signUps)
}

func TestAuthHandler_SignUpErrors(t *testing.T) {
	initTestConfig(t)

	tests := []struct {
		name    string
		err     error
		body    interface{}
		code    int
		message string
	}{
		{"missing fields", nil, gin.H{"email": "a@b.c"}, http.StatusBadRequest, "Please enter your email and password."},
		{"validation", &service.ValidationError{Message: "Password must be at least 6 characters."}, SignUpRequest{Email: "a@b.c", Password: "x"}, http.StatusBadRequest, "at least 6"},
		{"taken", service.ErrEmailTaken, SignUpRequest{Email: "a@b.c", Password: "secret123"}, http.StatusBadRequest, "already exists"},
		{"mail failure", errors.New("smtp down"), SignUpRequest{Email: "a@b.c", Password: "secret123"}, http.StatusInternalServerError, "smtp down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newFakeAuth()
			auth.signUpErr = tt.err
			w := postJSON(authRouter(t, auth), "/api/v1/auth/sign-up", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			assert.Empty(t, auth.signUps)
		})
	}
}

func TestAuthHandler_SignInSetsCookie(t *testing.T) {
	initTestConfig(t)
	auth := newFakeAuth()
	r := authRouter(t, auth)

	w := postJSON(r, "/api/v1/auth/sign-in", SignInRequest{Email: "chef@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)

	cookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, middleware.SessionCookie+"="))
	assert.Contains(t, cookie, "HttpOnly")

	var resp struct {
		Data SignInResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "chef@example.com", resp.Data.Email)

	claims, err := middleware.ParseToken(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "sid-chef@example.com", claims.ID)

	// 令牌可用于查询会话
	req := httptest.NewRequest("GET", "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Data.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":false`)
}

func TestAuthHandler_SignInErrors(t *testing.T) {
	initTestConfig(t)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"wrong password", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unconfirmed", service.ErrEmailNotConfirmed, http.StatusForbidden},
		{"store failure", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newFakeAuth()
			auth.signInErr = tt.err
			w := postJSON(authRouter(t, auth), "/api/v1/auth/sign-in", SignInRequest{Email: "a@b.c", Password: "secret123"})
			assert.Equal(t, tt.code, w.Code)
			assert.Empty(t, w.Header().Get("Set-Cookie"))
			assert.Empty(t, auth.sessions)
		})
	}
}

func TestAuthHandler_SignOut(t *testing.T) {
	initTestConfig(t)
	auth := newFakeAuth()
	s := &service.Session{ID: "sid", UserID: 1, Email: "chef@example.com"}
	auth.sessions[s.ID] = s
	r := authRouter(t, auth)

	req := httptest.NewRequest("POST", "/api/v1/auth/sign-out", nil)
	req.Header.Set("Authorization", bearer(t, s))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sid"}, auth.signedOut)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=;")

	// 未登录时同样成功
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/auth/sign-out", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_SessionRequiresSignIn(t *testing.T) {
	initTestConfig(t)
	w := httptest.NewRecorder()
	authRouter(t, newFakeAuth()).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/auth/session", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":401`)
}

func TestAuthHandler_Confirm(t *testing.T) {
	initTestConfig(t)
	auth := newFakeAuth()
	auth.confirm["good"] = "/admin/login?notice=confirmed"
	r := authRouter(t, auth)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/auth/confirm?token=good", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login?notice=confirmed", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/auth/confirm?token=bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
