// Package propertyrecords checks the owner of record for an address against
// the queried owner name.
package propertyrecords

import (
	"encoding/json"
	"net/url"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/providers/adapters"
)

const (
	ProviderID     = "propertyrecords"
	DefaultBaseURL = "https://api.attomdata.com"
	profilePath    = "/propertyapi/v1.0.0/property/basicprofile"

	WarningOwnerMismatch = "Owner of record does not match"
	WarningNoProperty    = "No property record found for address"

	scoreOwnerMatch    = 85.0
	scoreOwnerMismatch = 35.0
	scoreNoProperty    = 20.0

	// minOwnerSimilarity is the name similarity at or above which the owner of
	// record is considered the queried owner.
	minOwnerSimilarity = 0.8
)

// New builds the provider. The key is sent in the X-API-Key header.
func New(client adapters.ClientConfig) *adapters.HTTPAdapter {
	client.ID = ProviderID
	if client.BaseURL == "" {
		client.BaseURL = DefaultBaseURL
	}
	client.Credential.Style = adapters.AuthHeader
	client.Credential.Name = "X-API-Key"

	return adapters.NewHTTPAdapter(adapters.HTTPAdapterConfig{
		Client: client,
		Path:   profilePath,
		Requirements: providers.Requirements{
			AllOf: []providers.Field{providers.FieldName, providers.FieldAddress},
		},
		Query: func(d identity.Descriptor) url.Values {
			return url.Values{"address": {d.Address}}
		},
		Parser: Parse,
	})
}

type owner struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstNameAndMi"`
	LastName  string `json:"lastName"`
}

func (o owner) name() string {
	if o.FullName != "" {
		return o.FullName
	}
	return identity.CollapseSpaces(o.FirstName + " " + o.LastName)
}

type property struct {
	Address struct {
		OneLine string `json:"oneLine"`
	} `json:"address"`
	Owner struct {
		Owner1 owner `json:"owner1"`
		Owner2 owner `json:"owner2"`
	} `json:"owner"`
	Assessment struct {
		Market struct {
			Total *float64 `json:"mktTtlValue"`
		} `json:"market"`
	} `json:"assessment"`
	Sale struct {
		SearchDate string `json:"saleSearchDate"`
	} `json:"sale"`
}

type response struct {
	Property []property `json:"property"`
}

// Parse compares the first property's owners of record with the queried
// name. Either owner matching counts as a match.
func Parse(body []byte, d identity.Descriptor) (*providers.PartialResult, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Property) == 0 {
		return &providers.PartialResult{
			Score:    scoreNoProperty,
			Details:  map[string]any{"ownerMatch": false},
			Warnings: []string{WarningNoProperty},
		}, nil
	}

	p := resp.Property[0]
	recorded := p.Owner.Owner1.name()
	match := ownerMatches(d.OwnerName, p.Owner.Owner1) || ownerMatches(d.OwnerName, p.Owner.Owner2)

	details := map[string]any{
		"propertyOwner":   recorded,
		"propertyAddress": p.Address.OneLine,
		"lastSaleDate":    p.Sale.SearchDate,
		"ownerMatch":      match,
	}
	if p.Assessment.Market.Total != nil {
		details["assessedValue"] = *p.Assessment.Market.Total
	}

	if match {
		return &providers.PartialResult{Score: scoreOwnerMatch, Details: details}, nil
	}
	return &providers.PartialResult{
		Score:    scoreOwnerMismatch,
		Details:  details,
		Warnings: []string{WarningOwnerMismatch},
	}, nil
}

func ownerMatches(queried string, o owner) bool {
	name := o.name()
	if name == "" {
		return false
	}
	return identity.NameSimilarity(queried, name) >= minOwnerSimilarity
}
