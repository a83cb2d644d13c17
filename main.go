package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/cppla/clipbot/bot"
	"github.com/cppla/clipbot/config"
	"github.com/cppla/clipbot/i18n"
	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/routes"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clipbot",
		Short:        "Telegram bot handing out videos and files under a daily quota",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newSweepCmd(), newHashPasswordCmd())
	return root
}

func addConfigFlag(fs *pflag.FlagSet, dst *string) {
	fs.StringVarP(dst, "config", "c", config.DefaultPath, "path to the JSON config file")
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		polling    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(configPath, polling)
		},
	}
	addConfigFlag(cmd.Flags(), &configPath)
	cmd.Flags().BoolVar(&polling, "polling", false, "use long polling instead of the webhook")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired share tokens and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := boot(configPath)
			if err != nil {
				return err
			}
			n, err := services.NewShareIssuer(db, cfg.ShareTTL()).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired share tokens\n", n)
			return nil
		},
	}
	addConfigFlag(cmd.Flags(), &configPath)
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash to use as ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := utils.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// boot loads configuration, the logger and the database shared by every command.
func boot(configPath string) (config.AppConfig, *gorm.DB, error) {
	cfg := config.LoadFrom(configPath)
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, err
	}
	db, err := config.InitDatabase(models.All()...)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

func serve(configPath string, polling bool) error {
	if err := config.Validate(config.LoadFrom(configPath), polling); err != nil {
		return err
	}
	cfg, db, err := boot(configPath)
	if err != nil {
		return err
	}

	tg, err := telegram.NewClient(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	svc := bot.Services{
		Quota:    services.NewQuotaLedger(db),
		Catalog:  services.NewCatalog(db, cfg.MaxFileSizeBytes()),
		Shares:   services.NewShareIssuer(db, cfg.ShareTTL()),
		Reporter: services.NewReporter(db),
	}
	scheduler := bot.NewScheduler()
	lang := i18n.NewLocalizer(lo.Uniq([]string{cfg.DefaultLang, i18n.DEFAULT_LANG})...)
	b := bot.New(cfg, tg, svc, bot.NewSessionStore(utils.GetRedis()), scheduler, lang)
	if err := b.RegisterJobs(); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	scheduler.Start()

	secret := cfg.WebhookSecret
	if secret == "" {
		// the webhook is registered again on every start, so a per-process secret is enough
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	router := routes.SetupRouter(cfg, routes.Deps{
		Catalog:       svc.Catalog,
		Shares:        svc.Shares,
		Reporter:      svc.Reporter,
		Bot:           b,
		WebhookSecret: secret,
	})

	var hooks []func(context.Context)
	if polling {
		if err := tg.RemoveWebhook(); err != nil {
			utils.Sugar.Warnf("remove webhook failed: %v", err)
		}
		pollCtx, stopPolling := context.WithCancel(context.Background())
		pollDone := make(chan struct{})
		go func() {
			defer close(pollDone)
			if err := tg.Poll(pollCtx, b.HandleUpdate); err != nil {
				utils.Sugar.Errorf("polling stopped: %v", err)
			}
		}()
		hooks = append(hooks, func(ctx context.Context) {
			stopPolling()
			select {
			case <-pollDone:
			case <-ctx.Done():
			}
		})
		utils.Sugar.Infof("bot @%s polling for updates", tg.Username())
	} else {
		url := strings.TrimRight(cfg.WebhookURL, "/") + "/telegram/webhook/" + secret
		if err := tg.SetWebhook(url); err != nil {
			return err
		}
		utils.Sugar.Infof("bot @%s webhook registered", tg.Username())
	}
	hooks = append(hooks, scheduler.Stop)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, router, hooks...); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
		return err
	}
	return nil
}
