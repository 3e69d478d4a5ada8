package localstore

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	st, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, State{}, st)
}

func TestSessionRoundTripKeepsMobile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.RememberMobile("9876543210"))
	require.NoError(t, s.SaveSession("tok", []*http.Cookie{{Name: "fieldops_session", Value: "abc"}}))

	reopened, err := Open(dir)
	require.NoError(t, err)
	st, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "9876543210", st.Mobile)
	assert.Equal(t, "tok", st.Token)
	require.Len(t, st.HTTPCookies(), 1)
	assert.Equal(t, "abc", st.HTTPCookies()[0].Value)

	require.NoError(t, reopened.ClearSession())
	st, err = reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, State{Mobile: "9876543210"}, st)

	info, err := os.Stat(filepath.Join(dir, fileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCorruptStateIsReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{"), 0o600))
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.Load()
	assert.Error(t, err)
}
