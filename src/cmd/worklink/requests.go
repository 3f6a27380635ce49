package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"worklink/src/contracts"
	"worklink/src/pipeline"
	"worklink/src/render"
)

var (
	submitWait    time.Duration
	statusJSON    bool
	requestsPlain bool
)

// submitCmd queues build information through the configured pipeline
var submitCmd = &cobra.Command{
	Use:   "submit [build-info.json]",
	Short: "Submit build information for mapping",
	Long: `Submit build information through the pipeline.

Local Mode (default): maps in-process and prints the result
Agentic Mode: publishes to Redpanda and prints the request ID

Set WORKLINK_REDPANDA_BROKERS to enable agentic mode.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		build, err := readBuildInfo(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		p, mode, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		requestID, err := p.Submit(ctx, build)
		if err != nil {
			return fmt.Errorf("failed to submit request: %w", err)
		}

		out := cmd.OutOrStdout()
		if mode == pipeline.AgenticMode {
			fmt.Fprintf(out, "Submitted request: %s\n", requestID)
			fmt.Fprintf(out, "Check status: worklink status %s\n", requestID)
			return nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, submitWait)
		defer cancel()
		status, err := pipeline.Wait(waitCtx, p, requestID, 50*time.Millisecond)
		if err != nil {
			return err
		}
		links, err := p.Links(ctx, requestID)
		if err != nil {
			return err
		}

		sty := styles(requestsPlain)
		fmt.Fprintln(out, render.Summary(status, sty))
		fmt.Fprintln(out, render.LinkTable(links, render.DefaultWidth, sty))
		return nil
	},
}

// statusOutput is the --json shape of the status command.
type statusOutput struct {
	Status *contracts.RequestStatus `json:"status"`
	Links  []contracts.WorkItemLink `json:"links"`
}

// statusCmd shows request status and stored links
var statusCmd = &cobra.Command{
	Use:   "status [request-id]",
	Short: "Check the status of a mapping request",
	Long:  `Query Postgres (or the local SQLite store) for a mapping request and its links.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		requestID := args[0]

		st, err := openStore(ctx, appConfig)
		if err != nil {
			return err
		}
		defer st.Close()

		status, err := st.GetRequestStatus(ctx, requestID)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		links, err := st.GetLinks(ctx, requestID)
		if err != nil {
			return fmt.Errorf("failed to get links: %w", err)
		}

		out := cmd.OutOrStdout()
		if statusJSON {
			return printJSON(out, statusOutput{Status: status, Links: links})
		}

		sty := styles(requestsPlain)
		fmt.Fprintln(out, render.Summary(status, sty))
		fmt.Fprintf(out, "VCS root: %s\n", status.VcsRoot)
		if pipeline.Done(status.Status) {
			fmt.Fprintln(out, render.LinkTable(links, render.DefaultWidth, sty))
		}
		return nil
	},
}

func init() {
	submitCmd.Flags().DurationVar(&submitWait, "wait", 2*time.Minute, "How long to wait for a local-mode result")
	submitCmd.Flags().BoolVar(&requestsPlain, "plain", false, "Disable colors and borders")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status and links as JSON")
	statusCmd.Flags().BoolVar(&requestsPlain, "plain", false, "Disable colors and borders")
}
