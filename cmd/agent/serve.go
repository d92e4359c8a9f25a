package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"browserx/internal/infrastructure/env"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	local := map[string]string{"addr": env.ServerAddr}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control plane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(cmd, flags, local, "")
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, hub := c.ControlPlane()
			defer hub.Close()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	return cmd
}
