// Package peopledata adapts a person-enrichment API (People Data Labs style)
// into a verification provider.
package peopledata

import (
	"encoding/json"
	"net/url"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/providers/adapters"
)

const (
	// ProviderID is the stable source identifier.
	ProviderID = "peopledatalabs"

	DefaultBaseURL = "https://api.peopledatalabs.com"
	enrichPath     = "/v5/person/enrich"

	// defaultScore is used when the provider omits a likelihood.
	defaultScore = 50.0
	// lowConfidence is the likelihood below which a match is flagged.
	lowConfidence = 0.5
	// minNameSimilarity is the similarity below which a returned profile name
	// is considered a different person.
	minNameSimilarity = 0.5

	WarningLowConfidence = "Low confidence match"
	WarningNameMismatch  = "Name does not match profile"
)

// New builds the provider. The API key travels in the X-Api-Key header.
func New(client adapters.ClientConfig) *adapters.HTTPAdapter {
	client.ID = ProviderID
	if client.BaseURL == "" {
		client.BaseURL = DefaultBaseURL
	}
	client.Credential.Style = adapters.AuthHeader
	client.Credential.Name = "X-Api-Key"

	return adapters.NewHTTPAdapter(adapters.HTTPAdapterConfig{
		Client: client,
		Path:   enrichPath,
		Requirements: providers.Requirements{
			AnyOf: []providers.Field{providers.FieldName, providers.FieldEmail},
		},
		Query:  Query,
		Parser: Parse,
	})
}

// Query maps the descriptor to enrichment parameters.
func Query(d identity.Descriptor) url.Values {
	q := url.Values{}
	if d.HasName() {
		q.Set("name", d.OwnerName)
	}
	if d.HasEmail() {
		q.Set("email", d.Email)
	}
	return q
}

type response struct {
	Likelihood         json.RawMessage   `json:"likelihood"`
	FullName           string            `json:"full_name"`
	JobTitle           string            `json:"job_title"`
	JobCompanyName     string            `json:"job_company_name"`
	JobCompanyIndustry string            `json:"job_company_industry"`
	LocationName       string            `json:"location_name"`
	LinkedinURL        string            `json:"linkedin_url"`
	Experience         []json.RawMessage `json:"experience"`
}

// Parse maps an enrichment response to a partial result.
//
// The likelihood is a probability in [0,1] scaled by 100; when it is absent,
// null or zero the score falls back to 50. A likelihood below 0.5, including an
// explicit null, is flagged as a low confidence match. When the caller supplied a name and the profile's name is
// not similar to it, the profile is flagged as a possible mismatch.
func Parse(body []byte, d identity.Descriptor) (*providers.PartialResult, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	score := defaultScore
	var warnings []string
	if likelihood, ok := parseLikelihood(resp.Likelihood); ok {
		if likelihood > 0 {
			score = likelihood * 100
		}
		if likelihood < lowConfidence {
			warnings = append(warnings, WarningLowConfidence)
		}
	}

	if d.HasName() && resp.FullName != "" && identity.NameSimilarity(d.OwnerName, resp.FullName) < minNameSimilarity {
		warnings = append(warnings, WarningNameMismatch)
	}

	return &providers.PartialResult{
		Score: score,
		Details: map[string]any{
			"fullName":    resp.FullName,
			"jobTitle":    resp.JobTitle,
			"company":     resp.JobCompanyName,
			"industry":    resp.JobCompanyIndustry,
			"location":    resp.LocationName,
			"linkedinUrl": resp.LinkedinURL,
			"experience":  len(resp.Experience),
		},
		Warnings: warnings,
	}, nil
}

// parseLikelihood accepts a JSON number. An explicit null reads as zero;
// missing or non-numeric values report ok=false.
func parseLikelihood(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	if string(raw) == "null" {
		return 0, true
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}
