package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/internal/bot"
	"github.com/mohammad-safakhou/reportbot/internal/delivery"
	"github.com/mohammad-safakhou/reportbot/internal/irc"
)

func botCMD() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Connect to IRC and answer research requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			ic := a.cfg.IRC
			if err := ic.Validate(); err != nil {
				return err
			}

			var router *bot.Router
			client := irc.New(irc.Config{
				Server:   ic.Server,
				Port:     ic.Port,
				TLS:      ic.TLS,
				Nickname: ic.Nickname,
				Channel:  ic.Channel,
			}, irc.Handlers{
				Ready: func(ctx context.Context, nickname, channel string) {
					if err := router.Ready(ctx, nickname, channel); err != nil {
						a.logger.Warn("ready announcement failed", zap.Error(err))
					}
				},
				Message: func(ctx context.Context, text, sender, channel string) {
					router.Handle(ctx, bot.Message{Text: text, Sender: sender, Channel: channel})
				},
			}, a.logger.Named("irc"))

			out := delivery.New(client,
				delivery.WithLineLimit(ic.LineLimit),
				delivery.WithInterval(ic.SendInterval),
				delivery.WithLogger(a.logger.Named("delivery")))
			router = bot.NewRouter(bot.Config{
				Trigger:           ic.Trigger,
				DefaultReportKind: a.cfg.Research.DefaultReportType,
				OutputDir:         a.cfg.General.OutputDir,
				Storage:           a.storage(),
				ReportInChannel:   ic.ReportInChannel,
			}, a.pool, out, a.stats, a.logger.Named("bot"))

			if ic.StatsSchedule != "" {
				digest, err := bot.NewDigest(ic.StatsSchedule, a.stats, out, a.logger.Named("digest"))
				if err != nil {
					return err
				}
				digest.Start(ctx)
			}

			a.logger.Info("connecting", zap.String("server", ic.Server), zap.String("channel", ic.Channel))
			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return cmd
}
