// Package emailcheck adapts an email-deliverability API (Hunter style) into a
// verification provider.
package emailcheck

import (
	"encoding/json"
	"net/url"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/providers/adapters"
)

const (
	ProviderID     = "hunter"
	DefaultBaseURL = "https://api.hunter.io"
	verifierPath   = "/v2/email-verifier"

	StatusDeliverable   = "deliverable"
	StatusRisky         = "risky"
	StatusUndeliverable = "undeliverable"
	StatusUnknown       = "unknown"

	WarningRisky      = "Email marked as risky"
	WarningDisposable = "Disposable email address"
)

// statusScores maps the categorical deliverability result to a 0-100 score.
var statusScores = map[string]float64{
	StatusDeliverable:   90,
	StatusRisky:         60,
	StatusUndeliverable: 10,
	StatusUnknown:       40,
}

// fallbackScore applies to results outside the known categories.
const fallbackScore = 40.0

// New builds the provider. The API key is sent as the api_key query parameter.
// A malformed email leaves the provider's requirements unmet.
func New(client adapters.ClientConfig) *adapters.HTTPAdapter {
	client.ID = ProviderID
	if client.BaseURL == "" {
		client.BaseURL = DefaultBaseURL
	}
	client.Credential.Style = adapters.AuthQuery
	client.Credential.Name = "api_key"

	return adapters.NewHTTPAdapter(adapters.HTTPAdapterConfig{
		Client:       client,
		Path:         verifierPath,
		Requirements: providers.Requirements{AllOf: []providers.Field{providers.FieldValidEmail}},
		Query: func(d identity.Descriptor) url.Values {
			return url.Values{"email": {d.Email}}
		},
		Parser: Parse,
	})
}

type response struct {
	Data *struct {
		Result     string `json:"result"`
		Score      *int   `json:"score"`
		Regexp     *bool  `json:"regexp"`
		Gibberish  *bool  `json:"gibberish"`
		Disposable *bool  `json:"disposable"`
		Webmail    *bool  `json:"webmail"`
		MXRecords  *bool  `json:"mx_records"`
		SMTPServer *bool  `json:"smtp_server"`
	} `json:"data"`
}

// Parse maps a verifier response to a partial result through the fixed
// status table. Unknown or missing statuses score 40.
func Parse(body []byte, _ identity.Descriptor) (*providers.PartialResult, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	details := map[string]any{}
	var warnings []string
	score := fallbackScore

	if d := resp.Data; d != nil {
		if s, ok := statusScores[d.Result]; ok {
			score = s
		}
		details["emailStatus"] = d.Result
		setIfPresent(details, "emailScore", d.Score)
		setIfPresent(details, "regexp", d.Regexp)
		setIfPresent(details, "gibberish", d.Gibberish)
		setIfPresent(details, "disposable", d.Disposable)
		setIfPresent(details, "webmail", d.Webmail)
		setIfPresent(details, "mxRecords", d.MXRecords)
		setIfPresent(details, "smtp", d.SMTPServer)

		if d.Result == StatusRisky {
			warnings = append(warnings, WarningRisky)
		}
		if d.Disposable != nil && *d.Disposable {
			warnings = append(warnings, WarningDisposable)
		}
	}

	return &providers.PartialResult{
		Score:    score,
		Details:  details,
		Warnings: warnings,
	}, nil
}

func setIfPresent[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}
