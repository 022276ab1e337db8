package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server over stdio",
	Long: `Starts the editor as an MCP server so agents can read and edit the
integration through tools. Logs go to stderr to keep stdout for JSON-RPC.
Integration and graph changes are pushed to every client that has called a
tool with a client_id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, _, err := setup(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if file, _ := cmd.Flags().GetString("file"); file != "" {
			in, err := readIntegration(ctx, cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if err := a.editor.Integrations().UpdateIntegration(state.IntegrationPatch{
				Metadata: &in.Metadata,
				Steps:    in.Steps,
				Params:   in.Params,
			}); err != nil {
				return err
			}
		}

		if err := a.start(ctx); err != nil {
			_ = a.close()
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				logger.Warn("close", "error", err)
			}
		}()

		srv := mcp.NewFlowcanvasServer(mcp.ServerDeps{
			Editor: a.editor,
			Source: a.source,
			Logger: logger,
		})
		notifier := mcp.NewMCPNotifier(srv.MCPServer(), srv.Sessions())
		go func() {
			if err := notifier.Forward(ctx, a.hub, logger); err != nil {
				logger.Warn("mcp notifications stopped", "error", err)
			}
		}()

		logger.Info("flowcanvas MCP server (stdio)", "version", version)
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("file", "", "Integration YAML file to load before serving")
	mcpCmd.Flags().String("backend", "", "Backend base URL for catalog, source, views and deployments")
	mcpCmd.Flags().String("layout-engine", "", "Layout engine: layered or graphviz")
	mcpCmd.Flags().String("views", "", "YAML file with view definitions")
}
