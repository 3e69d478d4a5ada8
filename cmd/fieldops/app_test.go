package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/fieldops/internal/config"
	"github.com/fieldops/fieldops/internal/localstore"
	"github.com/fieldops/fieldops/internal/logging"
	"github.com/fieldops/fieldops/internal/navigation"
)

func newTestApp(t *testing.T, apiURL string) (*app, *localstore.Store) {
	t.Helper()
	dir := t.TempDir()
	local, err := localstore.Open(dir)
	require.NoError(t, err)
	require.NoError(t, local.SaveSession("saved-token", []*http.Cookie{{Name: "fieldops_session", Value: "saved-token"}}))

	a, err := newApp(config.ClientConfig{
		APIURL:               apiURL,
		StateDir:             dir,
		RequestTimeout:       2 * time.Second,
		LegacyExpiryMessages: true,
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a, local
}

func TestStartupKeepsCredentialsWhenServerIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	a, local := newTestApp(t, srv.URL)
	a.start(context.Background())

	assert.Equal(t, navigation.SetPublic, a.gate.Active())
	st, err := local.Load()
	require.NoError(t, err)
	assert.Equal(t, "saved-token", st.Token)
	assert.Len(t, st.Cookies, 1)
}

func TestStartupClearsCredentialsWhenSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "login again ! session expired", "code": "session_expired"})
	}))
	defer srv.Close()

	a, local := newTestApp(t, srv.URL)
	a.start(context.Background())

	assert.Equal(t, navigation.SetPublic, a.gate.Active())
	st, err := local.Load()
	require.NoError(t, err)
	assert.Empty(t, st.Token)
	assert.Empty(t, st.Cookies)
}
