package emailcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/providers/adapters"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParse(t *testing.T) {
	t.Run("deliverable", func(t *testing.T) {
		result, err := Parse(fixture(t, "deliverable.json"), identity.Descriptor{})

		require.NoError(t, err)
		assert.Equal(t, 90.0, result.Score)
		assert.Empty(t, result.Warnings)
		assert.Equal(t, "deliverable", result.Details["emailStatus"])
		assert.Equal(t, 94, result.Details["emailScore"])
		assert.Equal(t, true, result.Details["mxRecords"])
		assert.Equal(t, true, result.Details["smtp"])
		assert.Equal(t, false, result.Details["disposable"])
	})

	t.Run("risky and disposable", func(t *testing.T) {
		result, err := Parse(fixture(t, "risky_disposable.json"), identity.Descriptor{})

		require.NoError(t, err)
		assert.Equal(t, 60.0, result.Score)
		assert.Equal(t, []string{WarningRisky, WarningDisposable}, result.Warnings)
	})

	t.Run("status table", func(t *testing.T) {
		cases := map[string]float64{
			"deliverable":   90,
			"risky":         60,
			"undeliverable": 10,
			"unknown":       40,
			"accept_all":    40,
			"":              40,
		}
		for status, want := range cases {
			result, err := Parse([]byte(`{"data":{"result":"`+status+`"}}`), identity.Descriptor{})
			require.NoError(t, err)
			assert.Equal(t, want, result.Score, status)
		}
	})

	t.Run("missing data object", func(t *testing.T) {
		result, err := Parse([]byte(`{"errors":[]}`), identity.Descriptor{})

		require.NoError(t, err)
		assert.Equal(t, 40.0, result.Score)
		assert.Empty(t, result.Details)
	})
}

func TestProviderRequiresEmail(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write(fixture(t, "deliverable.json"))
	}))
	defer srv.Close()

	provider := New(adapters.ClientConfig{
		BaseURL:    srv.URL,
		Credential: adapters.Credential{Value: "hunter-key"},
		Timeout:    time.Second,
	})

	result, err := provider.Verify(context.Background(), identity.Descriptor{OwnerName: "John Smith"})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, calls)
}

func TestProviderSkipsMalformedEmail(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write(fixture(t, "deliverable.json"))
	}))
	defer srv.Close()

	provider := New(adapters.ClientConfig{
		BaseURL:    srv.URL,
		Credential: adapters.Credential{Value: "hunter-key"},
		Timeout:    time.Second,
	})

	result, err := provider.Verify(context.Background(), identity.Descriptor{OwnerName: "John Smith", Email: "john.smith"})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, calls)
}

func TestProviderSendsKeyAsQuery(t *testing.T) {
	var gotKey, gotEmail string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		gotEmail = r.URL.Query().Get("email")
		_, _ = w.Write(fixture(t, "deliverable.json"))
	}))
	defer srv.Close()

	provider := New(adapters.ClientConfig{
		BaseURL:    srv.URL,
		Credential: adapters.Credential{Value: "hunter-key"},
		Timeout:    time.Second,
	})

	result, err := provider.Verify(context.Background(), identity.Descriptor{Email: "john@example.com"})

	require.NoError(t, err)
	assert.Equal(t, ProviderID, result.Source)
	assert.Equal(t, "hunter-key", gotKey)
	assert.Equal(t, "john@example.com", gotEmail)
}
