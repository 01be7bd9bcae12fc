package credentials

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"github.com/go-playground/validator/v10"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// tokenExpirySkew is subtracted from the token lifetime so that tokens are refreshed before the
	// authorization server rejects them.
	tokenExpirySkew = 30 * time.Second

	tokenKey = "access_token"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type OAuthConfig struct {
	// URL of the token endpoint.
	URL string `validate:"required,url"`

	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	Audience     string `validate:"required"`

	// Scope is a space separated list of scopes.
	Scope string

	// HTTPClient is used for token requests. Defaults to a client with a 10 second timeout.
	HTTPClient *http.Client

	// RetryBackOff creates the backoff for failed token requests. Defaults to an exponential backoff
	// giving up after 3 retries.
	RetryBackOff func() backoff.BackOff

	Logger *slog.Logger
}

// OAuth fetches access tokens with the client credentials grant. Tokens are cached until shortly before
// they expire or until Invalidate is called.
type OAuth struct {
	config OAuthConfig
	grant  *clientcredentials.Config
	cache  *ttlcache.Cache[string, string]
}

var _ Provider = (*OAuth)(nil)

func NewOAuth(config OAuthConfig) (*OAuth, error) {
	if err := validate.Struct(config); err != nil {
		return nil, &zeebeerrors.ErrSettings{Message: "invalid OAuth configuration", Cause: err}
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	if config.RetryBackOff == nil {
		config.RetryBackOff = func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		}
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &OAuth{
		config: config,
		grant: &clientcredentials.Config{
			ClientID:       config.ClientID,
			ClientSecret:   config.ClientSecret,
			TokenURL:       config.URL,
			Scopes:         strings.Fields(config.Scope),
			EndpointParams: url.Values{"audience": {config.Audience}},
			AuthStyle:      oauth2.AuthStyleInParams,
		},
		cache: ttlcache.New(
			ttlcache.WithCapacity[string, string](1),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}, nil
}

// AuthMetadata returns the authorization header with a cached or freshly fetched token.
func (o *OAuth) AuthMetadata(ctx context.Context) (map[string]string, error) {
	token, err := o.Token(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]string{"authorization": "Bearer " + token}, nil
}

// Token returns the current access token.
func (o *OAuth) Token(ctx context.Context) (string, error) {
	if item := o.cache.Get(tokenKey); item != nil {
		return item.Value(), nil
	}

	t, err := backoff.RetryWithData(func() (*oauth2.Token, error) {
		return o.fetch(ctx)
	}, backoff.WithContext(o.config.RetryBackOff(), ctx))
	if err != nil {
		return "", &zeebeerrors.ErrInvalidOAuthCredentials{
			URL:      o.config.URL,
			ClientID: o.config.ClientID,
			Audience: o.config.Audience,
			Cause:    err,
		}
	}

	if !t.Expiry.IsZero() {
		if ttl := time.Until(t.Expiry) - tokenExpirySkew; ttl > 0 {
			o.cache.Set(tokenKey, t.AccessToken, ttl)
		}
	}

	return t.AccessToken, nil
}

// Invalidate drops the cached token, e.g. after the gateway rejected it.
func (o *OAuth) Invalidate() {
	o.cache.Delete(tokenKey)
}

func (o *OAuth) fetch(ctx context.Context) (*oauth2.Token, error) {
	t, err := o.grant.Token(context.WithValue(ctx, oauth2.HTTPClient, o.config.HTTPClient))
	if err == nil {
		return t, nil
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		// Only server errors and rate limiting are worth retrying
		if code := rerr.Response.StatusCode; code < 500 && code != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}

		o.config.Logger.Warn("Token request failed", "url", o.config.URL, "status", rerr.Response.StatusCode)
		return nil, err
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		o.config.Logger.Warn("Token request failed", "url", o.config.URL, "error", err)
		return nil, err
	}

	// Malformed responses, e.g. without an access token
	return nil, backoff.Permanent(err)
}
