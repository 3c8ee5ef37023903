package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/nothingcube/regsync/internal/catalog"
	"github.com/nothingcube/regsync/internal/config"
	"github.com/nothingcube/regsync/internal/gateway"
	"github.com/nothingcube/regsync/internal/http_api"
	"github.com/nothingcube/regsync/internal/notifier"
	"github.com/nothingcube/regsync/internal/registry"
	"github.com/nothingcube/regsync/internal/session"
	"github.com/nothingcube/regsync/internal/syncchan"
	"github.com/nothingcube/regsync/pkg/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "regsync",
		Usage: "regsync keeps the admin console's container registry in sync with the remote authority",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend-url", Aliases: []string{"b"}, Usage: "Registry API base URL"},
			&cli.StringFlag{Name: "sync-url", Aliases: []string{"s"}, Usage: "Push channel websocket URL"},
			&cli.StringFlag{Name: "token", Aliases: []string{"t"}, Usage: "Admin session bearer token"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"p"}, Usage: "Local status API port"},
			&cli.IntFlag{Name: "max-reconnect-attempts", Aliases: []string{"r"}, Usage: "Push channel reconnection attempt limit"},
			&cli.DurationFlag{Name: "reconnect-delay", Aliases: []string{"w"}, Usage: "Fixed delay between reconnection attempts"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("backend-url") {
		cfg.BackendURL = c.String("backend-url")
	}
	if c.IsSet("sync-url") {
		cfg.SyncURL = c.String("sync-url")
	}
	if c.IsSet("token") {
		cfg.AdminToken = c.String("token")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("max-reconnect-attempts") {
		cfg.SyncMaxReconnectAttempts = c.Int("max-reconnect-attempts")
	}
	if c.IsSet("reconnect-delay") {
		cfg.SyncReconnectDelay = c.Duration("reconnect-delay")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	// The session credential is produced by the external login flow and
	// handed in through the environment or the --token flag. There is no
	// in-process authentication path, so without one there is nothing to do.
	if cfg.AdminToken == "" {
		return fmt.Errorf("no admin session token configured, set ADMIN_TOKEN or pass --token")
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	sess := session.New(cfg.AdminToken)

	// Initialize notification sinks
	var telegramNotif *notifier.TelegramNotificator
	if cfg.TelegramBotToken != "" {
		telegramNotif, err = notifier.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notificator: %v", err)
		}
	}
	notificator := notifier.NewNotificator(log, telegramNotif)

	// Initialize the mutation gateway and the components built on it
	gw := gateway.New(cfg.BackendURL, sess, log)
	store := registry.New(gw, sess, notificator, log)
	cat := catalog.New(gw, log)
	channel := syncchan.New(cfg.SyncURL, sess, store, notificator, cfg.SyncMaxReconnectAttempts, cfg.SyncReconnectDelay, log)

	// Credential teardown (gateway 401 or logout) closes the push channel.
	// Close runs on its own goroutine because the 401 may surface inside the
	// channel's own refresh path.
	sess.OnInvalidate(func() {
		log.Warn("Session invalidated, closing sync channel")
		go channel.Close()
	})

	apiServer := http_api.NewHTTPServer(store, channel, cat, cfg.APIPort, log)
	go apiServer.Start()

	ctx := context.Background()
	if err := store.Refresh(ctx); err != nil {
		log.Error("Initial registry refresh failed ", "error ", err)
	}
	if err := channel.Run(); err != nil {
		log.Error("Failed to open sync channel ", "error ", err)
	}

	// Block until terminated
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	channel.Close()
	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down the status API ", "error ", err)
	}
	return nil
}
