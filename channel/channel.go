// Package channel builds gRPC client connections to a Zeebe gateway.
package channel

import (
	"crypto/tls"
	"fmt"
	"os"
	"slices"
	"time"

	zcredentials "github.com/cschleiden/go-zeebe/credentials"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

const (
	DefaultAddress = "localhost:26500"

	// AddressEnv names the environment variable consulted when no address is given.
	AddressEnv = "ZEEBE_ADDRESS"

	DefaultKeepaliveTime    = 45 * time.Second
	DefaultKeepaliveTimeout = 20 * time.Second
)

type Options struct {
	// KeepaliveTime is the interval of keepalive pings. The gateway rejects pings more frequent than
	// its minimum, so this should not go below the gateway's configuration.
	KeepaliveTime time.Duration

	// KeepaliveTimeout is how long to wait for a ping acknowledgment before closing the connection.
	KeepaliveTimeout time.Duration

	// PermitWithoutStream sends pings even without active RPCs.
	PermitWithoutStream bool

	// DialOptions are appended to the options of the channel.
	DialOptions []grpc.DialOption
}

var DefaultOptions = Options{
	KeepaliveTime:    DefaultKeepaliveTime,
	KeepaliveTimeout: DefaultKeepaliveTimeout,
}

// Address returns address, falling back to ZEEBE_ADDRESS and then DefaultAddress.
func Address(address string) string {
	if address != "" {
		return address
	}

	if env := os.Getenv(AddressEnv); env != "" {
		return env
	}

	return DefaultAddress
}

// NewInsecure creates a plaintext channel.
func NewInsecure(address string, options *Options) (*grpc.ClientConn, error) {
	return newChannel(address, options, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// NewSecure creates a TLS channel. A nil creds uses the system's root certificates.
func NewSecure(address string, creds credentials.TransportCredentials, options *Options) (*grpc.ClientConn, error) {
	if creds == nil {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	return newChannel(address, options, grpc.WithTransportCredentials(creds))
}

// NewOAuth creates a TLS channel that authenticates every call with provider.
func NewOAuth(address string, provider zcredentials.Provider, options *Options) (*grpc.ClientConn, error) {
	return withCallCredentials(options, zcredentials.PerRPC(provider), func(o *Options) (*grpc.ClientConn, error) {
		return NewSecure(address, nil, o)
	})
}

// NewCamundaCloud creates a channel to a Camunda Cloud cluster.
func NewCamundaCloud(config zcredentials.CamundaCloudConfig, options *Options) (*grpc.ClientConn, error) {
	provider, err := zcredentials.NewCamundaCloud(config)
	if err != nil {
		return nil, err
	}

	return NewOAuth(provider.Address(), provider, options)
}

func withCallCredentials(
	options *Options, creds credentials.PerRPCCredentials, build func(*Options) (*grpc.ClientConn, error),
) (*grpc.ClientConn, error) {
	o := resolve(options)
	o.DialOptions = append(slices.Clone(o.DialOptions), grpc.WithPerRPCCredentials(creds))

	return build(&o)
}

func resolve(options *Options) Options {
	if options == nil {
		return DefaultOptions
	}

	o := *options
	if o.KeepaliveTime == 0 {
		o.KeepaliveTime = DefaultKeepaliveTime
	}

	if o.KeepaliveTimeout == 0 {
		o.KeepaliveTimeout = DefaultKeepaliveTimeout
	}

	return o
}

func dialOptions(options Options) []grpc.DialOption {
	return append([]grpc.DialOption{
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                options.KeepaliveTime,
			Timeout:             options.KeepaliveTimeout,
			PermitWithoutStream: options.PermitWithoutStream,
		}),
		grpc.WithUserAgent("go-zeebe"),
	}, options.DialOptions...)
}

func newChannel(address string, options *Options, transport grpc.DialOption) (*grpc.ClientConn, error) {
	o := resolve(options)

	conn, err := grpc.NewClient(Address(address), append(dialOptions(o), transport)...)
	if err != nil {
		return nil, fmt.Errorf("creating channel to %s: %w", Address(address), err)
	}

	return conn, nil
}
