package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cschleiden/go-zeebe/zeebeerrors"
)

const (
	CamundaCloudTokenURL = "https://login.cloud.camunda.io/oauth/token"

	DefaultCamundaCloudRegion = "bru-2"
)

type CamundaCloudConfig struct {
	ClientID     string
	ClientSecret string
	ClusterID    string

	// Region of the cluster. Defaults to DefaultCamundaCloudRegion.
	Region string

	// TokenURL overrides CamundaCloudTokenURL.
	TokenURL string

	HTTPClient *http.Client
}

// Address returns the gateway address of the cluster.
func (c CamundaCloudConfig) Address() string {
	region := c.Region
	if region == "" {
		region = DefaultCamundaCloudRegion
	}

	return fmt.Sprintf("%s.%s.zeebe.camunda.io:443", c.ClusterID, region)
}

// CamundaCloud authenticates against a Camunda Cloud cluster.
type CamundaCloud struct {
	config CamundaCloudConfig
	oauth  *OAuth
}

var _ Provider = (*CamundaCloud)(nil)

func NewCamundaCloud(config CamundaCloudConfig) (*CamundaCloud, error) {
	if config.ClientID == "" || config.ClientSecret == "" || config.ClusterID == "" {
		return nil, &zeebeerrors.ErrInvalidCamundaCloudCredentials{
			ClientID:  config.ClientID,
			ClusterID: config.ClusterID,
			Cause:     errors.New("client id, client secret and cluster id are required"),
		}
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = CamundaCloudTokenURL
	}

	oauth, err := NewOAuth(OAuthConfig{
		URL:          tokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Audience:     "zeebe.camunda.io",
		HTTPClient:   config.HTTPClient,
	})
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidCamundaCloudCredentials{ClientID: config.ClientID, ClusterID: config.ClusterID, Cause: err}
	}

	return &CamundaCloud{config: config, oauth: oauth}, nil
}

func (c *CamundaCloud) Address() string {
	return c.config.Address()
}

func (c *CamundaCloud) AuthMetadata(ctx context.Context) (map[string]string, error) {
	md, err := c.oauth.AuthMetadata(ctx)
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidCamundaCloudCredentials{ClientID: c.config.ClientID, ClusterID: c.config.ClusterID, Cause: err}
	}

	return md, nil
}
