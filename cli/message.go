package cli

import (
	"errors"
	"time"

	"github.com/cschleiden/go-zeebe/client"
	"github.com/spf13/cobra"
)

func newPublishCmd(cli *Cli) *cobra.Command {
	var (
		correlationKey string
		variables      string
		ttl            time.Duration
		messageID      string
	)

	c := cobra.Command{
		Use:   "publish MESSAGE_NAME",
		Short: "Publish a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			vars, err := parseVariables(variables)
			if err != nil {
				return err
			}

			opts := []client.MessageOption{client.WithTimeToLive(ttl)}
			if messageID != "" {
				opts = append(opts, client.WithMessageID(messageID))
			}

			ctx, cancel := cli.requestContext(c)
			defer cancel()

			resp, err := cli.client.PublishMessage(ctx, args[0], correlationKey, vars, opts...)
			if err != nil {
				return err
			}
			return printJSON(c, resp)
		},
	}

	c.Flags().StringVar(&correlationKey, "correlation-key", "", "Correlation key of the message")
	c.Flags().StringVar(&variables, "variables", "", "Variables as JSON object")
	c.Flags().DurationVar(&ttl, "ttl", client.DefaultMessageTimeToLive, "Time to live of the message")
	c.Flags().StringVar(&messageID, "message-id", "", "Unique ID of the message")

	_ = c.MarkFlagRequired("correlation-key")

	return &c
}

func newSignalCmd(cli *Cli) *cobra.Command {
	var variables string

	c := cobra.Command{
		Use:   "signal SIGNAL_NAME",
		Short: "Broadcast a signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			vars, err := parseVariables(variables)
			if err != nil {
				return err
			}

			ctx, cancel := cli.requestContext(c)
			defer cancel()

			resp, err := cli.client.BroadcastSignal(ctx, args[0], vars)
			if err != nil {
				return err
			}
			return printJSON(c, resp)
		},
	}

	c.Flags().StringVar(&variables, "variables", "", "Variables as JSON object")

	return &c
}

func newEvaluateCmd(cli *Cli) *cobra.Command {
	var (
		decisionID  string
		decisionKey int64
		variables   string
	)

	c := cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a decision",
		RunE: func(c *cobra.Command, _ []string) error {
			if (decisionID == "") == (decisionKey == 0) {
				return errors.New("either --decision-id or --decision-key is required")
			}

			vars, err := parseVariables(variables)
			if err != nil {
				return err
			}

			ctx, cancel := cli.requestContext(c)
			defer cancel()

			if decisionID != "" {
				resp, err := cli.client.EvaluateDecisionByID(ctx, decisionID, vars)
				if err != nil {
					return err
				}
				return printJSON(c, resp)
			}

			resp, err := cli.client.EvaluateDecisionByKey(ctx, decisionKey, vars)
			if err != nil {
				return err
			}
			return printJSON(c, resp)
		},
	}

	c.Flags().StringVar(&decisionID, "decision-id", "", "ID of the decision, evaluates the latest version")
	c.Flags().Int64Var(&decisionKey, "decision-key", 0, "Key of a specific decision version")
	c.Flags().StringVar(&variables, "variables", "", "Variables as JSON object")

	return &c
}
