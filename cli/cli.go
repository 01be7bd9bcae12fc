// Package cli implements the zeebe command line client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cschleiden/go-zeebe/adapter"
	"github.com/cschleiden/go-zeebe/channel"
	"github.com/cschleiden/go-zeebe/client"
	"github.com/cschleiden/go-zeebe/contextpropagation"
	"github.com/cschleiden/go-zeebe/credentials"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

const (
	envLookupAllowed = "envLookupAllowed" // flag level annotation that allows an environment variable lookup
	envPrefix        = "ZEEBE_"
	noClientRequired = "noClientRequired" // annotation, indicating that the command does not talk to a gateway
	program          = "zeebe"
)

func New(version string) *Cli {
	cli := Cli{version: version}

	cli.rootCmd = newRootCmd(&cli)

	return &cli
}

type Cli struct {
	version string

	rootCmd *cobra.Command

	adapter *adapter.Adapter
	client  *client.Client

	logger         *slog.Logger
	metrics        metrics.Client
	tracerProvider trace.TracerProvider
	propagators    []contextpropagation.ContextPropagator

	timeout  time.Duration
	shutdown []shutdownFunc
}

func (c *Cli) Execute() int {
	defer c.close()

	if err := c.rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func (c *Cli) help(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// requestContext bounds a single gateway command by the --timeout flag.
func (c *Cli) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}

func (c *Cli) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(c.shutdown) - 1; i >= 0; i-- {
		if err := c.shutdown[i](ctx); err != nil && c.logger != nil {
			c.logger.Warn("Shutdown failed", "error", err)
		}
	}
	c.shutdown = nil
}

type connectionFlags struct {
	address      string
	insecure     bool
	clientID     string
	clientSecret string
	clusterID    string
	region       string
	tokenURL     string
	audience     string
	tenantID     string

	keepalive time.Duration
}

type telemetryFlags struct {
	logLevel      string
	logFormat     string
	traceExporter string
	metricsAddr   string
}

func newRootCmd(cli *Cli) *cobra.Command {
	var (
		conn connectionFlags
		tel  telemetryFlags
	)

	c := cobra.Command{
		Use:   program,
		Short: "A command line client and job worker for Zeebe gateways",
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			c.SilenceUsage = true

			if cli.client != nil {
				return nil // skip client creation when testing
			}

			c.Flags().VisitAll(func(f *pflag.Flag) {
				if f.Changed {
					return
				}
				if _, ok := f.Annotations[envLookupAllowed]; !ok {
					return
				}

				// e.g. client-id -> ZEEBE_CLIENT_ID
				key := envPrefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")

				if value, ok := os.LookupEnv(key); ok {
					_ = f.Value.Set(value)
				}
			})

			if _, ok := c.Annotations[noClientRequired]; ok {
				return nil
			}

			return cli.connect(c, conn, tel)
		},
		RunE: cli.help,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cli.close()
		},
		Annotations: map[string]string{noClientRequired: ""},
	}

	f := c.PersistentFlags()
	f.StringVar(&conn.address, "address", "", "Address of the gateway (default "+channel.DefaultAddress+")")
	f.BoolVar(&conn.insecure, "insecure", false, "Connect without TLS")
	f.StringVar(&conn.clientID, "client-id", "", "OAuth client ID")
	f.StringVar(&conn.clientSecret, "client-secret", "", "OAuth client secret")
	f.StringVar(&conn.clusterID, "cluster-id", "", "Camunda Cloud cluster ID, derives address and token URL")
	f.StringVar(&conn.region, "region", credentials.DefaultCamundaCloudRegion, "Camunda Cloud region")
	f.StringVar(&conn.tokenURL, "authorization-server-url", credentials.CamundaCloudTokenURL, "OAuth token endpoint")
	f.StringVar(&conn.audience, "token-audience", "zeebe-api", "OAuth token audience")
	f.StringVar(&conn.tenantID, "tenant-id", "", "Tenant of created resources")
	f.DurationVar(&conn.keepalive, "keepalive", channel.DefaultKeepaliveTime, "Interval of keepalive pings")
	f.DurationVar(&cli.timeout, "timeout", 30*time.Second, "Time limit for gateway commands")

	f.StringVar(&tel.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.StringVar(&tel.logFormat, "log-format", "text", "Log format: text or json")
	f.StringVar(&tel.traceExporter, "trace-exporter", traceExporterNone, "Trace exporter: none, stdout or otlp")
	f.StringVar(&tel.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	for _, name := range []string{
		"address", "insecure", "client-id", "client-secret", "cluster-id", "region",
		"authorization-server-url", "token-audience", "tenant-id", "keepalive", "timeout",
		"log-level", "log-format", "trace-exporter", "metrics-addr",
	} {
		_ = f.SetAnnotation(name, envLookupAllowed, nil)
	}

	c.AddCommand(newDeployCmd(cli))
	c.AddCommand(newRunCmd(cli))
	c.AddCommand(newCancelCmd(cli))
	c.AddCommand(newPublishCmd(cli))
	c.AddCommand(newEvaluateCmd(cli))
	c.AddCommand(newSignalCmd(cli))
	c.AddCommand(newTopologyCmd(cli))
	c.AddCommand(newHealthCmd(cli))
	c.AddCommand(newEchoWorkerCmd(cli))
	c.AddCommand(newVersionCmd(cli))

	return &c
}

func (c *Cli) connect(cmd *cobra.Command, conn connectionFlags, tel telemetryFlags) error {
	logger, err := newLogger(cmd.ErrOrStderr(), tel.logLevel, tel.logFormat)
	if err != nil {
		return err
	}
	c.logger = logger

	tp, shutdownTracing, err := newTracerProvider(cmd.Context(), tel.traceExporter, c.version, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.tracerProvider = tp
	c.shutdown = append(c.shutdown, shutdownTracing)

	if tel.traceExporter != "" && tel.traceExporter != traceExporterNone {
		c.propagators = []contextpropagation.ContextPropagator{&contextpropagation.TracingContextPropagator{}}
	}

	m, shutdownMetrics, err := serveMetrics(tel.metricsAddr, logger)
	if err != nil {
		c.close()
		return err
	}
	c.metrics = m
	c.shutdown = append(c.shutdown, shutdownMetrics)

	cc, err := dial(conn, logger)
	if err != nil {
		c.close()
		return fmt.Errorf("failed to connect to gateway: %w", err)
	}

	opts := []adapter.Option{adapter.WithLogger(logger), adapter.WithTracerProvider(tp)}
	if m != nil {
		opts = append(opts, adapter.WithMetrics(m))
	}

	c.adapter = adapter.New(cc, opts...)
	c.shutdown = append(c.shutdown, func(context.Context) error {
		return c.adapter.Close()
	})

	clientOpts := []client.Option{client.WithLogger(logger), client.WithContextPropagators(c.propagators...)}
	if conn.tenantID != "" {
		clientOpts = append(clientOpts, client.WithTenantID(conn.tenantID))
	}
	c.client = client.New(c.adapter, clientOpts...)

	return nil
}

func dial(conn connectionFlags, logger *slog.Logger) (*grpc.ClientConn, error) {
	opts := &channel.Options{KeepaliveTime: conn.keepalive}

	if conn.clusterID != "" {
		return channel.NewCamundaCloud(credentials.CamundaCloudConfig{
			ClientID:     conn.clientID,
			ClientSecret: conn.clientSecret,
			ClusterID:    conn.clusterID,
			Region:       conn.region,
			TokenURL:     conn.tokenURL,
		}, opts)
	}

	if conn.clientID == "" {
		if conn.insecure {
			return channel.NewInsecure(conn.address, opts)
		}
		return channel.NewSecure(conn.address, nil, opts)
	}

	provider, err := credentials.NewOAuth(credentials.OAuthConfig{
		URL:          conn.tokenURL,
		ClientID:     conn.clientID,
		ClientSecret: conn.clientSecret,
		Audience:     conn.audience,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	if conn.insecure {
		opts.DialOptions = append(opts.DialOptions, grpc.WithPerRPCCredentials(credentials.InsecurePerRPC(provider)))
		return channel.NewInsecure(conn.address, opts)
	}

	return channel.NewOAuth(conn.address, provider, opts)
}

func newVersionCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(cli.version)
		},
		Annotations: map[string]string{noClientRequired: ""},
	}

	return &c
}

// parseVariables decodes a JSON object given on the command line. An empty document yields no variables.
func parseVariables(document string) (job.Variables, error) {
	if strings.TrimSpace(document) == "" {
		return nil, nil
	}

	vars, err := job.DecodeVariables(document)
	if err != nil {
		return nil, fmt.Errorf("invalid variables: %w", err)
	}

	return vars, nil
}

func printJSON(c *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.OutOrStdout(), string(b))
	return err
}
