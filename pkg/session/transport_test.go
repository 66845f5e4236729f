package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvsession/pkg/session"
)

func TestCookieTransport(t *testing.T) {
	tr := session.NewCookieTransport("sid", session.WithSecureCookie(true), session.WithCookieDomain("example.com"))

	t.Run("set and get", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, tr.SetToken(w, "abc", time.Hour))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, "sid", c.Name)
		assert.Equal(t, "abc", c.Value)
		assert.Equal(t, 3600, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(c)
		token, err := tr.GetToken(r)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
	})

	t.Run("missing cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := tr.GetToken(r)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, tr.ClearToken(w))
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Empty(t, cookies[0].Value)
		assert.Negative(t, cookies[0].MaxAge)
	})
}

func TestHeaderTransport(t *testing.T) {
	tr := session.NewHeaderTransport("Authorization")

	w := httptest.NewRecorder()
	require.NoError(t, tr.SetToken(w, "abc", time.Minute))
	assert.Equal(t, "Bearer abc", w.Header().Get("Authorization"))
	assert.NotEmpty(t, w.Header().Get("Authorization-Expires"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc")
	token, err := tr.GetToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, tr.ClearToken(w))
	assert.Empty(t, w.Header().Get("Authorization"))

	_, err = tr.GetToken(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestCompositeTransport(t *testing.T) {
	tr := session.NewCompositeTransport(
		session.NewHeaderTransport("X-Session", session.WithHeaderPrefix("")),
		session.NewCookieTransport("sid"),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "from-cookie"})
	token, err := tr.GetToken(r)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", token)

	r.Header.Set("X-Session", "from-header")
	token, err = tr.GetToken(r)
	require.NoError(t, err)
	assert.Equal(t, "from-header", token)

	w := httptest.NewRecorder()
	require.NoError(t, tr.SetToken(w, "abc", time.Minute))
	assert.Equal(t, "abc", w.Header().Get("X-Session"))
	assert.Len(t, w.Result().Cookies(), 1)

	_, err = tr.GetToken(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestHeaderTransport_Defaults(t *testing.T) {
	tr := session.NewHeaderTransport("")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(session.DefaultHeaderName, "Bearer ")
	_, err := tr.GetToken(r)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	w := httptest.NewRecorder()
	require.NoError(t, tr.SetToken(w, "abc", 0))
	assert.Equal(t, "Bearer abc", w.Header().Get(session.DefaultHeaderName))
	assert.Empty(t, w.Header().Get(session.DefaultHeaderName+"-Expires"))
}
