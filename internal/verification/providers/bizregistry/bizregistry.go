// Package bizregistry adapts a business-registry search API into a
// verification provider. It reports whether the owner name is associated with
// registered companies.
package bizregistry

import (
	"encoding/json"
	"net/url"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/providers/adapters"
)

const (
	ProviderID     = "globalcompanydata"
	DefaultBaseURL = "https://api.globalcompanydata.com"
	searchPath     = "/search"

	WarningNoRecords = "No business records found"

	scoreWithCompanies    = 80.0
	scoreWithoutCompanies = 30.0
	maxListedCompanies    = 3
)

// New builds the provider. The credential is sent as a bearer token.
func New(client adapters.ClientConfig) *adapters.HTTPAdapter {
	client.ID = ProviderID
	if client.BaseURL == "" {
		client.BaseURL = DefaultBaseURL
	}
	client.Credential.Style = adapters.AuthBearer

	return adapters.NewHTTPAdapter(adapters.HTTPAdapterConfig{
		Client:       client,
		Path:         searchPath,
		Requirements: providers.Requirements{AllOf: []providers.Field{providers.FieldName}},
		Query: func(d identity.Descriptor) url.Values {
			return url.Values{"name": {d.OwnerName}}
		},
		Parser: Parse,
	})
}

type response struct {
	// pointer distinguishes a missing list from an empty one
	Companies *[]any `json:"companies"`
}

// Parse scores 80 when at least one company is returned and 30 otherwise.
// The "no records" warning is raised only for an explicitly empty list.
func Parse(body []byte, _ identity.Descriptor) (*providers.PartialResult, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	var companies []any
	if resp.Companies != nil {
		companies = *resp.Companies
	}

	score := scoreWithoutCompanies
	if len(companies) > 0 {
		score = scoreWithCompanies
	}

	listed := companies
	if len(listed) > maxListedCompanies {
		listed = listed[:maxListedCompanies]
	}
	if listed == nil {
		listed = []any{}
	}

	var warnings []string
	if resp.Companies != nil && len(companies) == 0 {
		warnings = append(warnings, WarningNoRecords)
	}

	return &providers.PartialResult{
		Score: score,
		Details: map[string]any{
			"companies":     listed,
			"businessCount": len(companies),
		},
		Warnings: warnings,
	}, nil
}
