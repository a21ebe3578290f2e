package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/providers"
)

type HTTPAdapterSuite struct {
	suite.Suite
	server   *httptest.Server
	handler  http.HandlerFunc
	requests atomic.Int32
	lastReq  *http.Request
}

func TestHTTPAdapterSuite(t *testing.T) {
	suite.Run(t, new(HTTPAdapterSuite))
}

func (s *HTTPAdapterSuite) SetupTest() {
	s.requests.Store(0)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"score":72}`))
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.lastReq = r
		s.handler(w, r)
	}))
}

func (s *HTTPAdapterSuite) TearDownTest() {
	s.server.Close()
}

func scoreParser(body []byte, _ identity.Descriptor) (*providers.PartialResult, error) {
	var payload struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &providers.PartialResult{Score: payload.Score}, nil
}

func (s *HTTPAdapterSuite) newAdapter(cred Credential, timeout time.Duration) *HTTPAdapter {
	return NewHTTPAdapter(HTTPAdapterConfig{
		Client: ClientConfig{
			ID:         "stub",
			BaseURL:    s.server.URL,
			Credential: cred,
			Timeout:    timeout,
		},
		Path:         "/lookup",
		Requirements: providers.Requirements{AnyOf: []providers.Field{providers.FieldEmail}},
		Query: func(d identity.Descriptor) url.Values {
			return url.Values{"email": {d.Email}}
		},
		Parser: scoreParser,
	})
}

func (s *HTTPAdapterSuite) descriptor() identity.Descriptor {
	return identity.Descriptor{OwnerName: "John Smith", Email: "john@example.com"}
}

func (s *HTTPAdapterSuite) TestSuccessfulLookup() {
	adapter := s.newAdapter(Credential{Style: AuthHeader, Name: "X-Api-Key", Value: "k1"}, time.Second)

	result, err := adapter.Verify(context.Background(), s.descriptor())

	s.Require().NoError(err)
	s.Require().NotNil(result)
	s.Equal("stub", result.Source)
	s.Equal(72.0, result.Score)
	s.NotNil(result.Details)
	s.NotNil(result.Warnings)
	s.Equal("k1", s.lastReq.Header.Get("X-Api-Key"))
	s.Equal("john@example.com", s.lastReq.URL.Query().Get("email"))
}

func (s *HTTPAdapterSuite) TestAuthStyles() {
	s.Run("bearer", func() {
		adapter := s.newAdapter(Credential{Style: AuthBearer, Value: "tok"}, time.Second)
		_, err := adapter.Verify(context.Background(), s.descriptor())
		s.Require().NoError(err)
		s.Equal("Bearer tok", s.lastReq.Header.Get("Authorization"))
	})

	s.Run("query", func() {
		adapter := s.newAdapter(Credential{Style: AuthQuery, Name: "api_key", Value: "qk"}, time.Second)
		_, err := adapter.Verify(context.Background(), s.descriptor())
		s.Require().NoError(err)
		s.Equal("qk", s.lastReq.URL.Query().Get("api_key"))
		s.Empty(s.lastReq.Header.Get("Authorization"))
	})
}

func (s *HTTPAdapterSuite) TestMissingRequiredFieldSkipsCall() {
	adapter := s.newAdapter(Credential{}, time.Second)

	result, err := adapter.Verify(context.Background(), identity.Descriptor{OwnerName: "John Smith"})

	s.NoError(err)
	s.Nil(result)
	s.Equal(int32(0), s.requests.Load())
}

func (s *HTTPAdapterSuite) TestStatusClassification() {
	tests := []struct {
		status   int
		category providers.ErrorCategory
	}{
		{http.StatusUnauthorized, providers.ErrorAuthentication},
		{http.StatusForbidden, providers.ErrorAuthentication},
		{http.StatusNotFound, providers.ErrorNotFound},
		{http.StatusTooManyRequests, providers.ErrorRateLimited},
		{http.StatusBadGateway, providers.ErrorProviderOutage},
		{http.StatusServiceUnavailable, providers.ErrorProviderOutage},
		{http.StatusBadRequest, providers.ErrorBadData},
	}

	for _, tc := range tests {
		s.Run(http.StatusText(tc.status), func() {
			s.handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}
			adapter := s.newAdapter(Credential{}, time.Second)

			result, err := adapter.Verify(context.Background(), s.descriptor())

			s.Nil(result)
			s.Equal(tc.category, providers.CategoryOf(err))
		})
	}
}

func (s *HTTPAdapterSuite) TestMalformedBodyIsBadData() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}
	adapter := s.newAdapter(Credential{}, time.Second)

	_, err := adapter.Verify(context.Background(), s.descriptor())

	var pe *providers.CallError
	s.Require().True(errors.As(err, &pe))
	s.Equal(providers.ErrorBadData, pe.Category)
	s.Equal("stub", pe.ProviderID)
}

func (s *HTTPAdapterSuite) TestTimeout() {
	release := make(chan struct{})
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}
	defer close(release)
	adapter := s.newAdapter(Credential{}, 20*time.Millisecond)

	_, err := adapter.Verify(context.Background(), s.descriptor())

	s.Equal(providers.ErrorTimeout, providers.CategoryOf(err))
	s.True(providers.IsTransient(err))
}

func (s *HTTPAdapterSuite) TestQueryCredentialNotLeakedInTransportErrors() {
	adapter := NewHTTPAdapter(HTTPAdapterConfig{
		Client: ClientConfig{
			ID:         "stub",
			BaseURL:    "http://127.0.0.1:1",
			Credential: Credential{Style: AuthQuery, Name: "api_key", Value: "secret-key"},
			Timeout:    time.Second,
		},
		Path:   "/lookup",
		Parser: scoreParser,
	})

	_, err := adapter.Verify(context.Background(), s.descriptor())

	s.Require().Error(err)
	s.NotContains(err.Error(), "secret-key")
}

func TestClampScore(t *testing.T) {
	cases := map[float64]float64{-5: 0, 0: 0, 55.5: 55.5, 100: 100, 180: 100}
	for in, want := range cases {
		if got := ClampScore(in); got != want {
			t.Errorf("ClampScore(%v) = %v, want %v", in, got, want)
		}
	}
}
