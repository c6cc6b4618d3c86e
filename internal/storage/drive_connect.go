package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/recvault/vault-server-go/internal/config"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// NewDriveOAuthConfig builds the OAuth client shared by the Drive provider
// and the connect flow.
func NewDriveOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleOAuthClientID,
		ClientSecret: cfg.GoogleOAuthClientSecret,
		RedirectURL:  cfg.DriveRedirectURI(),
		Scopes:       cfg.GoogleDriveScopes,
		Endpoint:     google.Endpoint,
	}
}

// DriveConnection is the outcome of a successful consent exchange.
type DriveConnection struct {
	RefreshToken string
	Email        string
}

// DriveConnector runs the operator consent flow that yields a long-lived
// refresh token.
type DriveConnector struct {
	oauth       *oauth2.Config
	httpClient  *http.Client
	userInfoURL string
}

func NewDriveConnector(oauth *oauth2.Config, httpClient *http.Client) *DriveConnector {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DriveConnector{oauth: oauth, httpClient: httpClient, userInfoURL: googleUserInfoURL}
}

func (c *DriveConnector) Configured() bool {
	return c.oauth != nil && c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

func (c *DriveConnector) AuthCodeURL(state string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConnected
	}
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Exchange trades the authorization code for tokens. The connected account
// email is best effort and left empty when the profile lookup fails.
func (c *DriveConnector) Exchange(ctx context.Context, code string) (*DriveConnection, error) {
	if !c.Configured() {
		return nil, ErrNotConnected
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	return &DriveConnection{
		RefreshToken: token.RefreshToken,
		Email:        c.lookupEmail(ctx, token),
	}, nil
}

func (c *DriveConnector) lookupEmail(ctx context.Context, token *oauth2.Token) string {
	if token.AccessToken == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return ""
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("drive userinfo lookup failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var profile struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(profile.Email))
}
