package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTopologyCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "topology",
		Short: "Show brokers and partitions of the cluster",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, cancel := cli.requestContext(c)
			defer cancel()

			topology, err := cli.client.Topology(ctx)
			if err != nil {
				return err
			}
			return printJSON(c, topology)
		},
	}

	return &c
}

func newHealthCmd(cli *Cli) *cobra.Command {
	var wait time.Duration

	c := cobra.Command{
		Use:   "health",
		Short: "Check the health of the gateway",
		RunE: func(c *cobra.Command, _ []string) error {
			if wait > 0 {
				if err := cli.client.WaitForHealthy(c.Context(), wait); err != nil {
					return err
				}
			}

			ctx, cancel := cli.requestContext(c)
			defer cancel()

			s, err := cli.client.Healthcheck(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.OutOrStdout(), s)
			return err
		},
	}

	c.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for the gateway to become healthy")

	return &c
}
