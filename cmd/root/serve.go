package root

import (
	"cmp"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/inboxd/inboxd/pkg/server"
)

type serveFlags struct {
	configPath string
	listenAddr string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant HTTP API server",
		Long:  `Start the HTTP server that exposes runs over a JSON and SSE API`,
		Args:  cobra.NoArgs,
		RunE:  flags.runServeCommand,
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the configuration file (default: ./inboxd.yaml)")
	cmd.Flags().StringVarP(&flags.listenAddr, "listen", "l", "", "Address to listen on (overrides config)")

	return cmd
}

func (f *serveFlags) runServeCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}

	svcs, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	addr := cmp.Or(f.listenAddr, cfg.Server.Addr)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Listening on "+ln.Addr().String())
	slog.Debug("Starting server", "addr", ln.Addr().String(), "model", cfg.Model.Model)

	return server.New(svcs.runtime, svcs.store).Serve(ctx, ln)
}
