package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumate-ai/tutor-be/middleware"
	"github.com/edumate-ai/tutor-be/types"
)

type fakeUserService struct {
	users map[string]*types.User
}

func (f *fakeUserService) CreateUser(ctx context.Context, user *types.User) error {
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserService) GetUser(ctx context.Context, id string) (*types.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, http.ErrNoLocation
}

func (f *fakeUserService) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, http.ErrNoLocation
	}
	return user, nil
}

func loginRouter() (*gin.Engine, *fakeUserService) {
	gin.SetMode(gin.TestMode)
	users := &fakeUserService{users: map[string]*types.User{
		"admin": {ID: "admin-1", Username: "admin", Password: "secret", Role: types.USER_ROLE_ADMIN},
	}}
	router := gin.New()
	router.POST("/login", NewLoginHandler(users).HandleLogin)

	protected := router.Group("/admin")
	protected.Use(middleware.AdminAuthMiddleware)
	protected.GET("/ping", func(c *gin.Context) {
		claims, ok := middleware.AdminClaimsFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Username)
	})
	return router, users
}

func postLogin(t *testing.T, router *gin.Engine, body types.LoginRequest) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleLoginSuccess(t *testing.T) {
	router, _ := loginRouter()
	w := postLogin(t, router, types.LoginRequest{Username: "admin", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Status bool `json:"status"`
		Data   struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Status)
	assert.NotEmpty(t, res.Data.AccessToken)
}

func TestHandleLoginWrongPassword(t *testing.T) {
	router, _ := loginRouter()
	w := postLogin(t, router, types.LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleLoginUnknownUser(t *testing.T) {
	router, _ := loginRouter()
	w := postLogin(t, router, types.LoginRequest{Username: "nobody", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMiddlewareAcceptsIssuedToken(t *testing.T) {
	router, _ := loginRouter()
	w := postLogin(t, router, types.LoginRequest{Username: "admin", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+res.Data.AccessToken)
	ping := httptest.NewRecorder()
	router.ServeHTTP(ping, req)
	require.Equal(t, http.StatusOK, ping.Code)
	assert.Equal(t, "admin", ping.Body.String())
}

func TestAdminMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	router, _ := loginRouter()

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "NotBearer token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
