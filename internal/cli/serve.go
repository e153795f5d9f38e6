package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ogulcanaydogan/Financial-Alarm/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP evaluation API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (default: server.listen)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = a.cfg.Server.Listen
	}
	readTimeout, writeTimeout := a.cfg.Server.Timeouts()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(a.engine, a.store, a.logger)
	return srv.ListenAndServe(ctx, listen, readTimeout, writeTimeout)
}
