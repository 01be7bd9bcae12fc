// Package credentials provides authentication metadata for gateway calls.
package credentials

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

// Provider returns the metadata attached to every gateway call.
type Provider interface {
	AuthMetadata(ctx context.Context) (map[string]string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (map[string]string, error)

func (f ProviderFunc) AuthMetadata(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

type perRPC struct {
	provider Provider
	insecure bool
}

var _ credentials.PerRPCCredentials = (*perRPC)(nil)

// PerRPC returns gRPC call credentials backed by provider. The credentials require transport security.
func PerRPC(provider Provider) credentials.PerRPCCredentials {
	return &perRPC{provider: provider}
}

// InsecurePerRPC is like PerRPC but also sends the metadata over plaintext connections.
func InsecurePerRPC(provider Provider) credentials.PerRPCCredentials {
	return &perRPC{provider: provider, insecure: true}
}

// GetRequestMetadata reports provider failures as Unauthenticated so they map like any other gateway error.
func (c *perRPC) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	md, err := c.provider.AuthMetadata(ctx)
	if err != nil {
		if _, ok := status.FromError(err); ok {
			return nil, err
		}

		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return md, nil
}

func (c *perRPC) RequireTransportSecurity() bool {
	return !c.insecure
}
