// Package oidcprovider implements the external identity strategy over a
// standard OIDC provider. The host supplies the user-facing step (opening
// the authorization URL and returning the code); this package owns state,
// nonce, and PKCE handling, the code exchange, ID token verification, and
// the profile upsert side effect.
package oidcprovider

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/aiacademy/academy-client/identity"
	clienterrors "github.com/aiacademy/academy-client/internal/errors"
	"github.com/aiacademy/academy-client/profiles"
	"github.com/aiacademy/academy-client/token"
)

const randomLength = 32

// Authorizer is the user-facing step of the flow: present authURL to the
// user (popup, system browser, redirect) and return the authorization code
// and echoed state. A user cancellation is reported as an error.
type Authorizer func(ctx context.Context, authURL string) (code, state string, err error)

// Provider is the OIDC-backed identity.Provider. Password operations are
// not available on this strategy; only the external flow is.
type Provider struct {
	oauthConfig  *oauth2.Config
	oidcProvider *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	authorize    Authorizer
	profileRepo  profiles.Repo
	httpClient   *http.Client

	endSessionEndpoint string
	lastIDToken        string
}

// Config holds the provider settings.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string // defaults to openid, profile, email

	// EndSessionEndpoint, when set, is called best-effort on sign-out.
	EndSessionEndpoint string
}

var _ identity.Provider = (*Provider)(nil)

// New discovers the issuer and builds the provider. The profile repo is
// required: every successful sign-in upserts the corresponding profile.
func New(ctx context.Context, cfg Config, authorize Authorizer, profileRepo profiles.Repo) (*Provider, error) {
	if authorize == nil {
		return nil, errors.New("[oidcprovider.New] authorizer is required")
	}
	if profileRepo == nil {
		return nil, errors.New("[oidcprovider.New] profile repo is required")
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcprovider.New] NewProvider")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       scopes,
		},
		oidcProvider:       oidcProvider,
		verifier:           oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		authorize:          authorize,
		profileRepo:        profileRepo,
		httpClient:         http.DefaultClient,
		endSessionEndpoint: cfg.EndSessionEndpoint,
	}, nil
}

// Authenticate is not available on the external strategy.
func (p *Provider) Authenticate(context.Context, string, string) (*identity.Identity, error) {
	return nil, errors.Wrap(clienterrors.ErrInvalidCredentials, "[oidcprovider.Authenticate] password auth not supported")
}

// Register is not available on the external strategy.
func (p *Provider) Register(context.Context, string, string, string) (*identity.Identity, error) {
	return nil, errors.Wrap(clienterrors.ErrEmailAlreadyInUse, "[oidcprovider.Register] registration happens at the provider")
}

// SignIn runs the full external flow: authorization with state, nonce, and
// PKCE, code exchange, ID token verification, and the idempotent profile
// upsert. The provider token's lifetime is carried back as the session
// expiry.
func (p *Provider) SignIn(ctx context.Context) (*identity.ProviderSession, error) {
	state, err := randomString()
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.SignIn] state")
	}
	nonce, err := randomString()
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.SignIn] nonce")
	}
	codeVerifier, err := randomString()
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.SignIn] code verifier")
	}

	challenge := sha256.Sum256([]byte(codeVerifier))
	authURL := p.oauthConfig.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", base64.RawURLEncoding.EncodeToString(challenge[:])),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	code, echoedState, err := p.authorize(ctx, authURL)
	if err != nil {
		return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, err.Error())
	}
	if echoedState != state {
		return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, "state mismatch")
	}

	oauth2Token, err := p.oauthConfig.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, err.Error())
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, "no ID token in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, err.Error())
	}
	if idToken.Nonce != nonce {
		return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, "nonce mismatch")
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, err.Error())
	}

	// Idempotent backing-store side effect: a pre-existing profile is left
	// untouched.
	if err := p.profileRepo.Upsert(ctx, &profiles.Profile{
		UID:      claims.Sub,
		Name:     claims.Name,
		Email:    claims.Email,
		PhotoURL: claims.Picture,
	}); err != nil {
		return nil, errors.Wrap(err, "[Provider.SignIn] profile upsert")
	}

	expiry := oauth2Token.Expiry
	if expiry.IsZero() {
		if jwtExpiry, expErr := token.ExpiryFromJWT(rawIDToken); expErr == nil {
			expiry = jwtExpiry
		}
	}

	p.lastIDToken = rawIDToken

	return &identity.ProviderSession{
		Identity: identity.Identity{
			ID:        claims.Sub,
			Name:      claims.Name,
			Email:     claims.Email,
			AvatarURL: claims.Picture,
		},
		Token:       oauth2Token.AccessToken,
		TokenExpiry: expiry,
	}, nil
}

// SignOut notifies the provider's end-session endpoint when one is
// configured. Failures are returned for the caller to log; local teardown
// never depends on this call.
func (p *Provider) SignOut(ctx context.Context) error {
	if p.endSessionEndpoint == "" {
		return nil
	}

	endSessionURL := p.endSessionEndpoint
	if p.lastIDToken != "" {
		endSessionURL += "?id_token_hint=" + url.QueryEscape(p.lastIDToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endSessionURL, nil)
	if err != nil {
		return errors.Wrap(err, "[Provider.SignOut] NewRequest")
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Provider.SignOut] Do")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("end-session response close failed")
		}
	}()
	return nil
}

func randomString() (string, error) {
	bytes := make([]byte, randomLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
