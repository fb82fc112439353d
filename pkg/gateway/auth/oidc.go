package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/synaptica-ai/classifier/pkg/common/logger"
	"github.com/synaptica-ai/classifier/pkg/gateway/httpclient"
	"golang.org/x/oauth2"
)

var ErrInvalidToken = errors.New("invalid access token")

type Claims map[string]interface{}

func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// OIDCAuthenticator validates bearer tokens against the issuer's userinfo
// endpoint.
type OIDCAuthenticator struct {
	issuer      string
	clientID    string
	userinfoURL string
	httpClient  *http.Client
}

func NewOIDCAuthenticator(issuer, clientID string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}
	issuer = strings.TrimRight(issuer, "/")
	return &OIDCAuthenticator{
		issuer:      issuer,
		clientID:    clientID,
		userinfoURL: issuer + "/userinfo",
		httpClient:  httpclient.New(10 * time.Second),
	}, nil
}

// WithHTTPClient sets the transport used for userinfo calls.
func (a *OIDCAuthenticator) WithHTTPClient(client *http.Client) *OIDCAuthenticator {
	a.httpClient = client
	return a
}

func (a *OIDCAuthenticator) ValidateToken(ctx context.Context, token string) (Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}
	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	var resp *http.Response
	err := httpclient.Retry(ctx, 3, 100*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userinfoURL, nil)
		if err != nil {
			return err
		}
		resp, err = client.Do(req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: issuer answered %d", ErrInvalidToken, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if claims.Subject() == "" {
		return nil, fmt.Errorf("%w: userinfo has no subject", ErrInvalidToken)
	}
	logger.Log.WithField("sub", claims.Subject()).Debug("Token validated")
	return claims, nil
}
