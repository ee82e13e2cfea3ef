package tokens

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
)

const exchangeTimeout = 30 * time.Second

// HTTPExchanger talks to the provider's OAuth token endpoint.
type HTTPExchanger struct {
	endpoint     string
	clientID     string
	clientSecret string
	hc           *http.Client
}

func NewHTTPExchanger(endpoint, clientID, clientSecret string) *HTTPExchanger {
	return &HTTPExchanger{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		hc:           &http.Client{},
	}
}

type grantResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (e *HTTPExchanger) Exchange(ctx context.Context, refreshToken string) (*Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", e.clientID)
	form.Set("client_secret", e.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apierrors.ClassifyTransport(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.hc.Do(req)
	if err != nil {
		return nil, apierrors.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apierrors.ClassifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apierrors.Classify(resp.StatusCode, body)
	}

	var gr grantResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, apierrors.ClassifyDecode(err)
	}
	if gr.AccessToken == "" {
		return nil, apierrors.New(apierrors.KindValidationError, resp.StatusCode,
			"token endpoint returned no access token")
	}

	return &Grant{
		AccessToken:  gr.AccessToken,
		RefreshToken: gr.RefreshToken,
		TokenType:    gr.TokenType,
		Scope:        gr.Scope,
		ExpiresIn:    gr.ExpiresIn,
	}, nil
}
