package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrInvalidBody is returned when the webhook answers with something other than JSON.
var ErrInvalidBody = errors.New("webhook returned a non-JSON body")

// maxBody caps how much of an upstream reply is read.
const maxBody = 4 << 20

type Options struct {
	URL     string
	Timeout time.Duration
	// BearerToken, when set, is sent as a static Authorization header.
	BearerToken string
	// TokenURL, ClientID and ClientSecret enable the OAuth2 client-credentials flow.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// HTTPClient is the base client; its transport is reused under the OAuth2 layer.
	HTTPClient *http.Client
}

// Client forwards itinerary requests to the workflow webhook.
type Client struct {
	url        string
	httpClient *http.Client
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("webhook url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	var hc *http.Client
	switch {
	case opts.TokenURL != "" && opts.ClientID != "":
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		hc = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	case opts.BearerToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.BearerToken, TokenType: "Bearer"})
		hc = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
	default:
		c := *base
		hc = &c
	}
	hc.Timeout = timeout
	return &Client{url: opts.URL, httpClient: hc}, nil
}

func (c *Client) URL() string { return c.url }

func (c *Client) do(ctx context.Context, method string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// Forward posts body unchanged and returns the upstream status and JSON body.
func (c *Client) Forward(ctx context.Context, body []byte) (int, []byte, error) {
	resp, err := c.do(ctx, http.MethodPost, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read webhook response: %w", err)
	}
	if !json.Valid(b) {
		return resp.StatusCode, b, ErrInvalidBody
	}
	return resp.StatusCode, b, nil
}
