package main

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"landtrust/pkg/platform/httputil"
)

// Magic inputs let local runs exercise the failure paths.
const (
	magicOutage   = "outage"   // any query containing it answers 503
	magicNotFound = "unknown"  // any query containing it answers 404
	magicSlow     = "slowpoke" // any query containing it stalls past provider timeouts
	slowDelay     = 15 * time.Second
)

type simulator struct {
	latency time.Duration
	logger  *slog.Logger
}

func newSimulator(latency time.Duration, logger *slog.Logger) *simulator {
	return &simulator{latency: latency, logger: logger}
}

func (s *simulator) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "provider-sim"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.simulate)
		r.Get("/v5/person/enrich", s.handlePeopleData)
		r.Get("/v2/email-verifier", s.handleEmailVerifier)
		r.Get("/search", s.handleCompanySearch)
		r.Get("/propertyapi/v1.0.0/property/basicprofile", s.handlePropertyProfile)
		r.Get("/v1/search", s.handleZillowSearch)
		r.Get("/v1/avm/rent/long-term", s.handleRentEstimate)
	})
	return r
}

// simulate applies auth, latency and the magic failure inputs.
func (s *simulator) simulate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authenticated(r) {
			s.fail(w, r, http.StatusUnauthorized, "missing credential")
			return
		}

		raw := strings.ToLower(r.URL.RawQuery)
		delay := s.latency
		if strings.Contains(raw, magicSlow) {
			delay = slowDelay
		}
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}

		switch {
		case strings.Contains(raw, magicOutage):
			s.fail(w, r, http.StatusServiceUnavailable, "simulated outage")
		case strings.Contains(raw, magicNotFound):
			s.fail(w, r, http.StatusNotFound, "no match")
		default:
			s.logger.Debug("simulated response", "path", r.URL.Path)
			next.ServeHTTP(w, r)
		}
	})
}

func authenticated(r *http.Request) bool {
	q := r.URL.Query()
	return r.Header.Get("X-Api-Key") != "" ||
		r.Header.Get("Authorization") != "" ||
		q.Get("api_key") != "" ||
		q.Get("key") != ""
}

func (s *simulator) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.logger.Info("simulated error", "path", r.URL.Path, "status", status, "reason", msg)
	httputil.WriteJSON(w, status, map[string]any{"error": http.StatusText(status), "message": msg})
}

// seed derives a stable byte from the request input so repeated lookups
// return the same data.
func seed(parts ...string) int {
	h := sha256.Sum256([]byte(strings.ToLower(strings.Join(parts, "|"))))
	return int(h[0])
}

func (s *simulator) handlePeopleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, email := q.Get("name"), q.Get("email")
	n := seed(name, email)

	fullName := name
	if fullName == "" {
		fullName = strings.Split(email, "@")[0]
	}
	companies := []string{"Acme Property Group", "Northwind Realty", "Contoso Holdings", "Fabrikam Estates"}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"likelihood":       float64(3+n%8) / 10,
		"full_name":        strings.ToLower(fullName),
		"job_title":        "property manager",
		"job_company_name": companies[n%len(companies)],
		"location_name":    "springfield, illinois, united states",
		"linkedin_url":     fmt.Sprintf("linkedin.com/in/sim-%d", n),
		"experience":       make([]map[string]any, 1+n%4),
	})
}

func (s *simulator) handleEmailVerifier(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	status, score := "deliverable", 92
	switch {
	case strings.HasPrefix(email, "risky"):
		status, score = "risky", 55
	case strings.HasPrefix(email, "bounce"):
		status, score = "undeliverable", 5
	}
	disposable := strings.HasSuffix(email, "@mailinator.com")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"email":       email,
			"result":      status,
			"score":       score,
			"regexp":      true,
			"gibberish":   false,
			"disposable":  disposable,
			"webmail":     strings.HasSuffix(email, "@gmail.com"),
			"mx_records":  true,
			"smtp_server": status != "undeliverable",
		},
	})
}

func (s *simulator) handleCompanySearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	n := seed(name)
	companies := make([]map[string]any, 0, n%3)
	for i := range n % 3 {
		companies = append(companies, map[string]any{
			"name":   fmt.Sprintf("%s Holdings %d LLC", name, i+1),
			"status": "active",
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (s *simulator) handlePropertyProfile(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	n := seed(address)
	owners := [][2]string{{"JOHN", "SMITH"}, {"MARIA", "GARCIA"}, {"WEI", "CHEN"}, {"AISHA", "KHAN"}}
	owner := owners[n%len(owners)]
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"property": []map[string]any{{
			"identifier": map[string]any{"attomId": 100000000 + n},
			"address":    map[string]any{"oneLine": strings.ToUpper(address)},
			"owner": map[string]any{
				"owner1": map[string]any{"firstNameAndMi": owner[0], "lastName": owner[1]},
			},
			"assessment": map[string]any{"market": map[string]any{"mktTtlValue": 150000 + n*2500}},
			"building": map[string]any{
				"rooms": map[string]any{"beds": 2 + n%3, "baths": 1 + n%2},
				"size":  map[string]any{"livingSize": 1100 + n*5},
			},
			"summary": map[string]any{"yearBuilt": 1950 + n%70, "propType": "SFR"},
			"lot":     map[string]any{"lotSize1": 0.15},
			"sale": map[string]any{
				"saleSearchDate": fmt.Sprintf("20%02d-0%d-15", 10+n%14, 1+n%9),
				"amount":         map[string]any{"saleAmt": 120000 + n*2000},
			},
		}},
	})
}

func (s *simulator) handleZillowSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	n := seed(query)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"results": []map[string]any{{
			"zpid":         2000000000 + n,
			"address":      query,
			"price":        200000 + n*3000,
			"bedrooms":     2 + n%3,
			"bathrooms":    1 + n%2,
			"livingArea":   1100 + n*5,
			"propertyType": "SINGLE_FAMILY",
			"zestimate":    205000 + n*3000,
		}},
	})
}

func (s *simulator) handleRentEstimate(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	rent := 1200 + seed(address)*5
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"address":       address,
		"rent":          rent,
		"rentRangeLow":  rent - 150,
		"rentRangeHigh": rent + 150,
		"confidence":    0.8,
	})
}
