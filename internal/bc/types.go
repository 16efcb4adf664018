package bc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the versioned Business Central API root.
	DefaultBaseURL = "https://api.businesscentral.dynamics.com/v2.0"
	// DefaultCompany is the company queried by GetCustomers when none is configured.
	DefaultCompany = "My Company"

	sandboxSegment = "Sandbox"
	odataSegment   = "ODataV4"
)

//
// ────────────────────────────────────────────────
//   Client Configuration
// ────────────────────────────────────────────────
//

// ClientConfig holds the OAuth credentials and tenant addressing for one
// Business Central environment. It is supplied once to New and never mutated.
type ClientConfig struct {
	ClientID     string // Azure AD app registration client_id
	ClientSecret string // Azure AD app registration client_secret
	Scope        string // e.g. "https://api.businesscentral.dynamics.com/.default"
	TokenURL     string // e.g. "https://login.microsoftonline.com/{tenant}/oauth2/v2.0/token"
	TenantID     string // Azure AD tenant (directory) id
	Sandbox      bool   // route requests to the Sandbox environment

	Company string // default company for GetCustomers; DefaultCompany when empty
	BaseURL string // API root; DefaultBaseURL when empty
}

//
// ────────────────────────────────────────────────
//   Token State
// ────────────────────────────────────────────────
//

// TokenState is the cached result of one client-credentials exchange.
//
// The token endpoint's refresh_token_expires_in has unclear units, so it is
// kept both as received (RefreshTokenExpiresIn) and interpreted as seconds
// from issue (RefreshTokenExpiresAt). Neither value drives renewal.
type TokenState struct {
	AccessToken           string
	IssuedAt              time.Time
	ExpiresAt             time.Time
	RefreshToken          string
	RefreshTokenExpiresIn int64
	RefreshTokenExpiresAt time.Time
}

// ValidAt reports whether the access token is present and not yet expired at now.
func (s *TokenState) ValidAt(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// tokenResponse is the JSON body returned by the OAuth2 token endpoint.
type tokenResponse struct {
	AccessToken           string  `json:"access_token"`
	TokenType             string  `json:"token_type"`
	ExpiresIn             seconds `json:"expires_in"`
	RefreshToken          string  `json:"refresh_token"`
	RefreshTokenExpiresIn seconds `json:"refresh_token_expires_in"`
}

// seconds accepts both JSON numbers and numeric strings. Azure AD v1
// endpoints return expires_in as "3599".
type seconds int64

func (s *seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = 0
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		if str == "" {
			*s = 0
			return nil
		}
		b = []byte(str)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid seconds value %q: %w", b, err)
	}
	*s = seconds(f)
	return nil
}

//
// ────────────────────────────────────────────────
//   Customers
// ────────────────────────────────────────────────
//

// Customer mirrors the Business Central Customer Card OData page.
type Customer struct {
	ETag              string          `json:"@odata.etag"`
	No                string          `json:"No"`
	Name              string          `json:"Customer_Name"`
	Address           string          `json:"Address"`
	Address2          string          `json:"Address_2"`
	County            string          `json:"County"`
	PostCode          string          `json:"Post_Code"`
	CountryRegionCode string          `json:"Country_Region_Code"`
	CreditLimitLCY    decimal.Decimal `json:"Credit_Limit_LCY"`
	PriceGroup        string          `json:"Customer_Price_Group"`
}

// customerList is the OData collection envelope for GET .../Customers.
// Value is a pointer so a missing field can be told apart from an empty list.
type customerList struct {
	Context string      `json:"@odata.context"`
	Value   *[]Customer `json:"value"`
}
