package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cschleiden/go-zeebe/client"
	"github.com/spf13/cobra"
)

func newRunCmd(cli *Cli) *cobra.Command {
	var (
		variables      string
		version        int32
		withResult     bool
		resultTimeout  time.Duration
		fetchVariables []string
	)

	c := cobra.Command{
		Use:   "run BPMN_PROCESS_ID",
		Short: "Create a process instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			vars, err := parseVariables(variables)
			if err != nil {
				return err
			}

			opts := []client.ProcessOption{}
			if c.Flags().Changed("version") {
				opts = append(opts, client.WithVersion(version))
			}

			ctx, cancel := cli.requestContext(c)
			defer cancel()

			if !withResult {
				resp, err := cli.client.RunProcess(ctx, args[0], vars, opts...)
				if err != nil {
					return err
				}
				return printJSON(c, resp)
			}

			if resultTimeout > 0 {
				opts = append(opts, client.WithResultTimeout(resultTimeout))
			}
			if len(fetchVariables) > 0 {
				opts = append(opts, client.WithVariablesToFetch(fetchVariables...))
			}

			resp, err := cli.client.RunProcessWithResult(ctx, args[0], vars, opts...)
			if err != nil {
				return err
			}
			return printJSON(c, resp)
		},
	}

	c.Flags().StringVar(&variables, "variables", "", "Variables as JSON object")
	c.Flags().Int32Var(&version, "version", -1, "Process version, -1 for the latest")
	c.Flags().BoolVar(&withResult, "with-result", false, "Wait for the process instance to complete")
	c.Flags().DurationVar(&resultTimeout, "result-timeout", 0, "Time the gateway waits for completion")
	c.Flags().StringSliceVar(&fetchVariables, "fetch-variables", nil, "Variables returned on completion")

	return &c
}

func newCancelCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "cancel PROCESS_INSTANCE_KEY",
		Short: "Cancel a process instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			key, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid process instance key %q", args[0])
			}

			ctx, cancel := cli.requestContext(c)
			defer cancel()

			key, err = cli.client.CancelProcessInstance(ctx, key)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(c.OutOrStdout(), "Cancelled process instance %d\n", key)
			return err
		},
	}

	return &c
}

func newDeployCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "deploy FILE...",
		Short: "Deploy BPMN, DMN and form resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx, cancel := cli.requestContext(c)
			defer cancel()

			resp, err := cli.client.DeployResource(ctx, args...)
			if err != nil {
				return err
			}
			return printJSON(c, resp)
		},
	}

	return &c
}
