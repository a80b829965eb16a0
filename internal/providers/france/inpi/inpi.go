// Package inpi adapts the INPI RNE API (Registre national des entreprises),
// the French registry that absorbed the trade and companies register in 2023.
// It is the official source for deeds, annual accounts and the beneficial
// owners register. Authentication is session-based: a username/password login
// yields a short-lived JWT that every call carries as a bearer token.
package inpi

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
	"corpatlas/internal/providers"
	"corpatlas/internal/providers/httpx"
)

const (
	name = "inpi"

	keyUsername = "INPI_USERNAME"
	keyPassword = "INPI_PASSWORD"
	keyBaseURL  = "INPI_BASE_URL"

	defaultBaseURL = "https://registre-national-entreprises.inpi.fr/api"

	// tokenSlack renews the session while the old token is still valid,
	// so an in-flight request never races its own credential's expiry.
	tokenSlack = time.Minute

	// defaultTokenTTL applies when the token carries no readable exp claim.
	defaultTokenTTL = 30 * time.Minute

	dateLayout = "2006-01-02"
)

func descriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:        name,
		DisplayName: "INPI RNE",
		Continent:   "europe",
		CountryCode: "FR",
		Capabilities: catalog.NewCapabilitySet(
			catalog.CapSearchByReference,
			catalog.CapGetDocuments,
			catalog.CapGetOfficers,
			catalog.CapGetBeneficialOwner,
		),
		RequiredConfig: []string{keyUsername, keyPassword},
		OptionalConfig: []string{keyBaseURL},
		Priority:       2,
		DocsURL:        "https://www.inpi.fr/acces-au-registre-national-des-entreprises-rne",
		SiteURL:        "https://www.inpi.fr",
	}
}

// Registration describes the provider for the catalog.
func Registration() catalog.Registration {
	return catalog.Registration{Descriptor: descriptor(), Factory: newAdapter}
}

type adapter struct {
	providers.Unsupported

	// api carries the bearer token; sso performs the login and must stay
	// undecorated or the token fetch would recurse into itself.
	api *httpx.Client
	sso *httpx.Client

	baseURL  string
	username string
	password string

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newAdapter(settings catalog.Settings) (catalog.Adapter, error) {
	baseURL := settings.GetDefault(keyBaseURL, defaultBaseURL)

	a := &adapter{
		Unsupported: providers.Unsupported{Provider: name},
		baseURL:     baseURL,
		username:    settings.Get(keyUsername),
		password:    settings.Get(keyPassword),
	}

	sso, err := httpx.New(httpx.Config{
		Provider: name,
		BaseURL:  baseURL,
	})
	if err != nil {
		return nil, err
	}
	api, err := httpx.New(httpx.Config{
		Provider:  name,
		BaseURL:   baseURL,
		RateLimit: rate.Limit(5),
		Burst:     5,
		Decorate:  httpx.BearerToken(a.bearer),
	})
	if err != nil {
		return nil, err
	}
	a.sso = sso
	a.api = api
	return a, nil
}

func (a *adapter) Descriptor() catalog.Descriptor { return descriptor() }

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// bearer returns a token with at least tokenSlack of life left, logging in
// again otherwise. Rejected credentials surface as misconfigured through the
// status translation, which quarantines the provider for the process.
func (a *adapter) bearer(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Until(a.expires) > tokenSlack {
		return a.token, nil
	}

	var resp loginResponse
	err := a.sso.PostJSON(ctx, "/sso/login", loginRequest{Username: a.username, Password: a.password}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", catalog.Errorf(catalog.CategoryMisconfigured, name, "login answered without a token")
	}
	a.token = resp.Token
	a.expires = tokenExpiry(resp.Token)
	return a.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the token
// is INPI's to verify, this side only needs to know when to renew.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Now().Add(defaultTokenTTL)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(defaultTokenTTL)
	}
	return exp.Time
}

func (a *adapter) LookupByIdentifier(ctx context.Context, ident catalog.Identifier) (*company.Record, error) {
	c, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return mapCompany(c, time.Now())
}

func (a *adapter) Officers(ctx context.Context, ident catalog.Identifier) ([]company.Officer, error) {
	c, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return c.officers(), nil
}

func (a *adapter) BeneficialOwners(ctx context.Context, ident catalog.Identifier) ([]company.BeneficialOwner, error) {
	c, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return c.beneficialOwners(), nil
}

func (a *adapter) Documents(ctx context.Context, ident catalog.Identifier) ([]company.Document, error) {
	siren, err := sirenOf(ident)
	if err != nil {
		return nil, err
	}
	var att attachments
	if err := a.api.GetJSON(ctx, "/companies/"+siren+"/attachments", nil, &att); err != nil {
		return nil, err
	}
	return att.documents(a.baseURL), nil
}

func (a *adapter) fetch(ctx context.Context, ident catalog.Identifier) (*rneCompany, error) {
	siren, err := sirenOf(ident)
	if err != nil {
		return nil, err
	}
	var c rneCompany
	if err := a.api.GetJSON(ctx, "/companies/"+siren, nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func sirenOf(ident catalog.Identifier) (string, error) {
	switch ident.Type {
	case company.IdentifierSIREN:
		return ident.Value, nil
	case company.IdentifierSIRET:
		return ident.Value[:9], nil
	case company.IdentifierVAT:
		return ident.Value[4:], nil
	}
	return "", catalog.Errorf(catalog.CategoryNotFound, name, "the RNE indexes companies by SIREN only")
}
