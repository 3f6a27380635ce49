package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"worklink/src/broker"
	"worklink/src/deployments"
	"worklink/src/linkagent"
	"worklink/src/logger"
	"worklink/src/mcp"
	"worklink/src/store"
)

var deploymentEventPath string

// agentCmd runs the link agent against Redpanda and Postgres
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the link agent (agentic mode)",
	Long: `Consume build information from Redpanda, map work items and store the
results in Postgres.

Requires WORKLINK_REDPANDA_BROKERS and WORKLINK_POSTGRES_DSN.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		agentLog := agentLogger()

		brk, err := requireRedpanda(agentLog)
		if err != nil {
			return err
		}
		defer brk.Close()

		if appConfig.PostgresDSN() == "" {
			return errors.New("WORKLINK_POSTGRES_DSN is required for the link agent")
		}
		st, err := store.NewPostgresStore(ctx, appConfig.PostgresDSN())
		if err != nil {
			return fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		defer st.Close()

		mapper, err := newMapper(ctx, appConfig)
		if err != nil {
			return err
		}

		agentLog.Info("Starting worklink link agent")
		agentLog.Info("Redpanda brokers: %v", appConfig.RedpandaBrokers())

		agent := linkagent.NewAgent(brk, mapper, st, agentLog)
		if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent error: %w", err)
		}

		agentLog.Info("Link agent stopped")
		return nil
	},
}

// deploymentsCmd pushes deployment status back to GitHub commits
var deploymentsCmd = &cobra.Command{
	Use:   "deployments",
	Short: "Push deployment status to GitHub commits",
	Long: `Consume deployment events from Redpanda and create a commit status for every
commit each deployment shipped.

With --event, handle a single deployment event JSON file (or "-" for stdin)
instead of consuming from the broker.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		agentLog := agentLogger()

		factory, err := newTrackerFactory(ctx, appConfig)
		if err != nil {
			return err
		}

		if deploymentEventPath != "" {
			event, err := readDeploymentEvent(deploymentEventPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return deployments.NewObserver(appConfig, factory, nil, agentLog).Handle(ctx, event)
		}

		brk, err := requireRedpanda(agentLog)
		if err != nil {
			return err
		}
		defer brk.Close()

		agentLog.Info("Starting worklink deployment observer")
		observer := deployments.NewObserver(appConfig, factory, brk, agentLog)
		if err := observer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("observer error: %w", err)
		}

		agentLog.Info("Deployment observer stopped")
		return nil
	},
}

// mcpCmd serves the MCP tools over stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Serve the map_work_items and get_work_items tools over the Model Context
Protocol. Uses the same pipeline mode detection as submit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, mode, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		log.Info("[MCP] Serving worklink %s on stdio (%s mode)", version, mode)
		return mcp.NewServer(p, version, mcp.WithLogger(log)).Run()
	},
}

func init() {
	deploymentsCmd.Flags().StringVar(&deploymentEventPath, "event", "", "Handle one deployment event JSON file instead of consuming the broker")
}

// agentLogger writes to stdout like the other long-running agents.
func agentLogger() logger.Logger {
	l := logger.NewConsoleLogger()
	l.SetVerbose(verbose)
	return l
}

func requireRedpanda(l logger.Logger) (*broker.RedpandaBroker, error) {
	brokers := appConfig.RedpandaBrokers()
	if len(brokers) == 0 {
		return nil, errors.New("WORKLINK_REDPANDA_BROKERS is required (example: export WORKLINK_REDPANDA_BROKERS=localhost:19092)")
	}
	brk, err := broker.NewRedpandaBroker(brokers, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}
	return brk, nil
}
