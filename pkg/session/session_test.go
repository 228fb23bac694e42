package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip saves database in one response and replays its cookie on a new request.
func roundTrip(t *testing.T, save, load *Store, database string) string {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/database", nil)
	require.NoError(t, save.SetSelectedDatabase(rec, req, database))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	return load.SelectedDatabase(next)
}

func TestStore_RoundTrip(t *testing.T) {
	store, err := NewStore(Options{Secret: "test-secret", MaxAge: 3600})
	require.NoError(t, err)

	assert.Equal(t, "salesdb", roundTrip(t, store, store, "salesdb"))
}

func TestStore_NoCookie(t *testing.T) {
	store, err := NewStore(Options{Secret: "test-secret"})
	require.NoError(t, err)

	assert.Empty(t, store.SelectedDatabase(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestStore_SameSecretAcrossInstances(t *testing.T) {
	a, err := NewStore(Options{Secret: "shared", MaxAge: 3600})
	require.NoError(t, err)
	b, err := NewStore(Options{Secret: "shared", MaxAge: 3600})
	require.NoError(t, err)

	assert.Equal(t, "salesdb", roundTrip(t, a, b, "salesdb"))
}

func TestStore_ForeignCookieIgnored(t *testing.T) {
	a, err := NewStore(Options{Secret: "one", MaxAge: 3600})
	require.NoError(t, err)
	b, err := NewStore(Options{Secret: "two", MaxAge: 3600})
	require.NoError(t, err)

	assert.Empty(t, roundTrip(t, a, b, "salesdb"))
}

func TestStore_RandomKeyWhenNoSecret(t *testing.T) {
	a, err := NewStore(Options{MaxAge: 3600})
	require.NoError(t, err)
	b, err := NewStore(Options{MaxAge: 3600})
	require.NoError(t, err)

	assert.Equal(t, "salesdb", roundTrip(t, a, a, "salesdb"))
	assert.Empty(t, roundTrip(t, a, b, "salesdb"))
}

func TestStore_CookieFlags(t *testing.T) {
	store, err := NewStore(Options{Secret: "s", MaxAge: 60, Secure: true})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, store.SetSelectedDatabase(rec, httptest.NewRequest(http.MethodPost, "/database", nil), "salesdb"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, Name, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}
