package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/stubserver"
)

func stubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a local stand-in for the platform API",
		Long:  "Serves the platform's HTTP/JSON contract from memory so the console can be exercised without the real backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			store := stubserver.NewStore()
			if a.cfg.Stub.Seed {
				store.Seed()
			}

			token, err := stubserver.MintSessionToken(a.cfg.Stub.SessionSecret, "1", "مشرف النظام")
			if err != nil {
				return err
			}
			fmt.Printf("session token for SESSION_TOKEN:\n%s\n\n", token)

			server := stubserver.NewServer(store, a.cfg.Stub.SessionSecret, a.cfg.Stub.DefaultPassword, a.logger)
			a.logger.Info("stub platform listening", zap.Int("port", a.cfg.Stub.Port))
			return server.Run(a.cfg.Stub.Port)
		},
	}
	return cmd
}
