package listings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"landtrust/internal/platform/config"
	"landtrust/internal/verification/providers/adapters"
)

const (
	ZillowBaseURL   = "https://api.zillow.com"
	AttomBaseURL    = "https://api.attomdata.com"
	RentCastBaseURL = "https://api.rentcast.io"

	zillowPath   = "/v1/search"
	attomPath    = "/propertyapi/v1.0.0/property/basicprofile"
	rentcastPath = "/v1/avm/rent/long-term"
)

// NewZillow searches Zillow. The key travels as the "key" query parameter.
func NewZillow(cfg adapters.ClientConfig) Source {
	cfg.ID = config.ListingZillow
	cfg.BaseURL = orDefault(cfg.BaseURL, ZillowBaseURL)
	cfg.Credential.Style = adapters.AuthQuery
	cfg.Credential.Name = "key"
	return newHTTPSource(cfg, zillowPath, "q", parseZillow)
}

// NewAttom searches ATTOM property profiles.
func NewAttom(cfg adapters.ClientConfig) Source {
	cfg.ID = config.ListingAttom
	cfg.BaseURL = orDefault(cfg.BaseURL, AttomBaseURL)
	cfg.Credential.Style = adapters.AuthHeader
	cfg.Credential.Name = "X-API-Key"
	return newHTTPSource(cfg, attomPath, "address", parseAttom)
}

// NewRentCast fetches a long-term rent estimate for the location.
func NewRentCast(cfg adapters.ClientConfig) Source {
	cfg.ID = config.ListingRentCast
	cfg.BaseURL = orDefault(cfg.BaseURL, RentCastBaseURL)
	cfg.Credential.Style = adapters.AuthHeader
	cfg.Credential.Name = "X-Api-Key"
	return newHTTPSource(cfg, rentcastPath, "address", parseRentCast)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type zillowResponse struct {
	Results []struct {
		ZPID         flexID   `json:"zpid"`
		Address      string   `json:"address"`
		Price        *float64 `json:"price"`
		Bedrooms     *float64 `json:"bedrooms"`
		Bathrooms    *float64 `json:"bathrooms"`
		LivingArea   *float64 `json:"livingArea"`
		PropertyType string   `json:"propertyType"`
		Photos       []string `json:"photos"`
		Zestimate    *float64 `json:"zestimate"`
	} `json:"results"`
}

func parseZillow(body []byte, _ time.Time) ([]Listing, error) {
	var resp zillowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Listing{
			ID:           string(r.ZPID),
			Address:      r.Address,
			Price:        r.Price,
			Bedrooms:     r.Bedrooms,
			Bathrooms:    r.Bathrooms,
			Sqft:         r.LivingArea,
			PropertyType: r.PropertyType,
			Images:       r.Photos,
			Zestimate:    r.Zestimate,
		})
	}
	return out, nil
}

type attomResponse struct {
	Property []struct {
		Identifier struct {
			AttomID flexID `json:"attomId"`
		} `json:"identifier"`
		Address struct {
			OneLine string `json:"oneLine"`
		} `json:"address"`
		Assessment struct {
			Market struct {
				MktTtlValue *float64 `json:"mktTtlValue"`
			} `json:"market"`
		} `json:"assessment"`
		Building struct {
			Rooms struct {
				Beds  *float64 `json:"beds"`
				Baths *float64 `json:"baths"`
			} `json:"rooms"`
			Size struct {
				LivingSize *float64 `json:"livingSize"`
			} `json:"size"`
		} `json:"building"`
		Summary struct {
			YearBuilt *int   `json:"yearBuilt"`
			PropType  string `json:"propType"`
		} `json:"summary"`
		Lot struct {
			LotSize1 *float64 `json:"lotSize1"`
		} `json:"lot"`
		Owner struct {
			Owner1 struct {
				LastName string `json:"lastName"`
			} `json:"owner1"`
		} `json:"owner"`
		Sale struct {
			SaleSearchDate string `json:"saleSearchDate"`
			Amount         struct {
				SaleAmt *float64 `json:"saleAmt"`
			} `json:"amount"`
		} `json:"sale"`
	} `json:"property"`
}

func parseAttom(body []byte, _ time.Time) ([]Listing, error) {
	var resp attomResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(resp.Property))
	for _, p := range resp.Property {
		out = append(out, Listing{
			ID:            string(p.Identifier.AttomID),
			Address:       p.Address.OneLine,
			Price:         p.Assessment.Market.MktTtlValue,
			Bedrooms:      p.Building.Rooms.Beds,
			Bathrooms:     p.Building.Rooms.Baths,
			Sqft:          p.Building.Size.LivingSize,
			YearBuilt:     p.Summary.YearBuilt,
			LotSize:       p.Lot.LotSize1,
			PropertyType:  p.Summary.PropType,
			OwnerName:     p.Owner.Owner1.LastName,
			LastSaleDate:  p.Sale.SaleSearchDate,
			LastSalePrice: p.Sale.Amount.SaleAmt,
		})
	}
	return out, nil
}

type rentcastResponse struct {
	Address       string   `json:"address"`
	Rent          *float64 `json:"rent"`
	RentRangeLow  *float64 `json:"rentRangeLow"`
	RentRangeHigh *float64 `json:"rentRangeHigh"`
	Confidence    *float64 `json:"confidence"`
}

// parseRentCast yields a single estimate listing, or none when the body
// carries no rent.
func parseRentCast(body []byte, now time.Time) ([]Listing, error) {
	var resp rentcastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Rent == nil {
		return []Listing{}, nil
	}
	return []Listing{{
		ID:           "rentcast-" + strconv.FormatInt(now.UnixMilli(), 10),
		Address:      resp.Address,
		RentEstimate: resp.Rent,
		RentRange:    &RentRange{Low: resp.RentRangeLow, High: resp.RentRangeHigh},
		Confidence:   resp.Confidence,
	}}, nil
}
