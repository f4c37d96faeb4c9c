package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"survival-tracker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLatest(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{
			"players": {
				"76561198000000001": {
					"name": "Ragnar",
					"session": {"playerKills": 3},
					"lifetime": {"playerKills": 145},
					"fishCaught": 12
				}
			}
		}`))
	}))
	defer srv.Close()

	s := NewHTTPSource(&config.Config{SnapshotURL: srv.URL, SnapshotKey: "secret"})
	require.True(t, s.Enabled())

	snaps, err := s.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotAuth)

	snap, ok := snaps["76561198000000001"]
	require.True(t, ok)
	assert.Equal(t, "76561198000000001", snap.PlayerID, "the map key backfills a missing id")
	assert.Equal(t, "Ragnar", snap.Name)
	assert.Equal(t, 3, snap.Session.PlayerKills)
	require.True(t, snap.HasExtendedAccounting())
	assert.Equal(t, 145, snap.Lifetime.PlayerKills)
	assert.Equal(t, 12, snap.FishCaught)
}

func TestFetchLatestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPSource(&config.Config{SnapshotURL: srv.URL})
	_, err := s.FetchLatest(context.Background())
	assert.Error(t, err)
}

func TestDisabledWithoutURL(t *testing.T) {
	s := NewHTTPSource(&config.Config{})
	assert.False(t, s.Enabled())
}
