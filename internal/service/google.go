// Package service holds outbound integrations: Google token verification
// and the donation event publisher.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GoogleUser is the subset of the Google userinfo response the application
// needs.
type GoogleUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleVerifier validates a Google OAuth access token and resolves the
// identity behind it. Handlers depend on this interface so tests can
// substitute a fake without network access.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*GoogleUser, error)
}

// ErrGoogleToken is returned for every verification failure: unreachable
// endpoint, wrong audience, or rejected token.
var ErrGoogleToken = errors.New("google token verification failed")

// googleVerifier checks tokens against Google's tokeninfo and userinfo
// endpoints. The tokeninfo audience must match the configured client id so
// tokens minted for other applications are rejected.
type googleVerifier struct {
	clientID string
	client   *http.Client
}

// NewGoogleVerifier returns a GoogleVerifier for the given OAuth client id,
// or nil when no client id is configured (Google sign-in disabled).
func NewGoogleVerifier(clientID string) GoogleVerifier {
	if clientID == "" {
		return nil
	}
	return &googleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

const (
	tokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"
	userInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
)

func (g *googleVerifier) Verify(ctx context.Context, token string) (*GoogleUser, error) {
	// Step 1: tokeninfo validates the token and reveals its audience.
	var info struct {
		Aud string `json:"aud"`
	}
	u := tokenInfoURL + "?access_token=" + url.QueryEscape(token)
	if err := g.getJSON(ctx, u, "", &info); err != nil {
		return nil, err
	}
	if info.Aud != g.clientID {
		return nil, ErrGoogleToken
	}

	// Step 2: userinfo resolves the identity.
	var user GoogleUser
	if err := g.getJSON(ctx, userInfoURL, token, &user); err != nil {
		return nil, err
	}
	if user.Email == "" {
		return nil, ErrGoogleToken
	}
	return &user, nil
}

func (g *googleVerifier) getJSON(ctx context.Context, rawURL, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGoogleToken, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrGoogleToken
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
