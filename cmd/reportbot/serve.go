package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/server"
)

func serveCMD() *cobra.Command {
	var (
		cfgPath string
		addr    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			deps := server.Deps{
				Jobs:      a.pool,
				Stats:     a.stats,
				Search:    a.index,
				Gatherer:  a.registry,
				OutputDir: a.cfg.General.OutputDir,
				Storage:   a.storage(),
				Logger:    a.logger.Named("server"),
			}
			if a.store != nil {
				deps.History = a.store
			}
			e := server.New(deps)

			if addr == "" {
				addr = a.cfg.Server.Address
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = e.Shutdown(shutdownCtx)
			}()
			a.logger.Info("listening", zap.String("addr", addr))
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.address)")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return cmd
}
