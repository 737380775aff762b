package cli

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"mcqbank-service/internal/app"
	"mcqbank-service/internal/config"
	"mcqbank-service/internal/infra/memory"
	redisstore "mcqbank-service/internal/infra/redis"
	"mcqbank-service/internal/transport/telegram"
)

const (
	bundleCacheTTL  = 10 * time.Minute
	redisSessionTTL = 7 * 24 * time.Hour
)

// NewBotCmd builds the subcommand that runs the Telegram delivery bot.
func NewBotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath)
		},
	}
}

func runBot(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	bundles := memory.NewBundleRepository(d.bundleLoader(), bundleCacheTTL)

	var sessions app.SessionStore
	var board app.LeaderboardStore
	if d.redisClient != nil {
		sessions = redisstore.NewSessionStore(d.redisClient, redisSessionTTL)
		board = redisstore.NewLeaderboardStore(d.redisClient)
	} else {
		sessions = memory.NewSessionStore()
		board = memory.NewLeaderboardStore()
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	log.Printf("authorized as @%s", api.Self.UserName)

	runner := app.NewRunner(
		telegram.NewMessenger(api),
		bundles,
		sessions,
		board,
		app.SystemClock(),
		cfg.WindowDuration(),
		cfg.Quiz.NegativeMark,
	)

	// Document uploads reuse the ingest pipeline; without a generation key it
	// still extracts pre-authored questions.
	bot := telegram.NewBot(api, runner, buildPipeline(cfg, d))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(runCtx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down bot...")
		cancel()
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
