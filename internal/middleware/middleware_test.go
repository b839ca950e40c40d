package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	user := &models.User{ID: 7, Username: "leo"}

	token, err := IssueSessionToken("secret", user, time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "leo", claims.Username)

	_, err = ParseSessionToken("other-secret", token)
	assert.Error(t, err)
}

func TestSessionToken_Expired(t *testing.T) {
	token, err := IssueSessionToken("secret", &models.User{ID: 1}, -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken("secret", token)
	assert.Error(t, err)
}

func TestLoginRedirectURL(t *testing.T) {
	assert.Equal(t, "/auth/login/?next=/create/", LoginRedirectURL("/create/"))
	assert.Equal(t, "/auth/login/?next=/follow/%3Fpage%3D2", LoginRedirectURL("/follow/?page=2"))
}

func TestLoginRequired(t *testing.T) {
	e := echo.New()
	handler := LoginRequired()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/posts/3/edit/", nil), rec)

		require.NoError(t, handler(c))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/login/?next=/posts/3/edit/", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("signed in", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/posts/3/edit/", nil), rec)
		c.Set(UserContextKey, &models.User{ID: 1})

		require.NoError(t, handler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"", "/"},
		{"/create/", "/create/"},
		{"/profile/leo/?page=2", "/profile/leo/?page=2"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"/\\evil.example/", "/"},
		{"relative/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeRedirect(tt.target, "/"), tt.target)
	}
}

func TestCurrentUser_Anonymous(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
}
