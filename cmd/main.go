package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"silvercal/internal/auth"
	"silvercal/internal/config"
	"silvercal/internal/google"
	"silvercal/internal/llm"
	"silvercal/internal/mapper"
	"silvercal/internal/resolver"
	"silvercal/internal/server"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "silvercal",
		Usage: "Voice-friendly schedule assistant backed by Google Calendar.",
		Commands: []*cli.Command{
			serveCommand(),
			authCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the schedule assistant HTTP service.",
		Action: func(c *cli.Context) error {
			cfg := config.FromEnv()
			logger := setupLogger(cfg.LogLevel)

			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
			}

			oauthCfg, err := auth.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL())
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			if cfg.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}

			completer := llm.NewClient(logger, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
			res := resolver.New(completer, logger, loc)
			gateway := google.NewClient(logger, loc)
			m := mapper.New(loc)

			srv := server.New(
				server.Config{Addr: cfg.Listen},
				logger,
				oauthCfg,
				auth.NewStore(),
				res,
				gateway,
				m,
			)

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			cfg := config.FromEnv()
			oauthCfg, err := auth.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, "urn:ietf:wg:oauth:2.0:oob")
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := auth.Exchange(c.Context, oauthCfg, authCode)
			if err != nil {
				return err
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := auth.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
