package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/storefrontapp/authkit/authapi"
	"github.com/storefrontapp/authkit/demoserver"
	"github.com/storefrontapp/authkit/httpclient"
	"github.com/storefrontapp/authkit/i18n"
	"github.com/storefrontapp/authkit/internal/config"
	"github.com/storefrontapp/authkit/session"
	"github.com/storefrontapp/authkit/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	displayAppname(cfg.AppName)

	logger := newLogger(cfg.LogLevel)

	baseURL := cfg.BaseURL
	if os.Getenv("API_BASE_URL") == "" {
		// No backend configured: run the embedded demo backend.
		addr, err := startDemoBackend(cfg, logger)
		if err != nil {
			return err
		}
		baseURL = addr
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("storage.NewFileStore: %w", err)
	}

	languages := i18n.NewSelector(store)

	metrics := httpclient.NewMetrics(prometheus.NewRegistry())
	httpClient := httpclient.New(baseURL, logger,
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		httpclient.WithRateLimit(cfg.RequestsPerSecond),
		httpclient.WithMetrics(metrics),
	)
	api := authapi.New(httpClient, logger, authapi.WithAvatarURL(cfg.DefaultAvatarURL))

	manager, err := session.NewManager(api, store, logger)
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}

	ctx := context.Background()
	manager.Initialize(ctx)

	return dispatch(ctx, manager, languages, args)
}

func dispatch(ctx context.Context, manager *session.Manager, languages *i18n.Selector, args []string) error {
	if len(args) == 0 {
		printStatus(manager)
		printUsage()
		return nil
	}

	switch args[0] {
	case "status":
		printStatus(manager)

	case "login":
		if len(args) != 3 {
			return errors.New("usage: authdemo login <email> <password>")
		}
		result := manager.Login(ctx, args[1], args[2])
		printResult("login", result)
		printStatus(manager)

	case "signup":
		if len(args) != 4 {
			return errors.New("usage: authdemo signup <name> <email> <password>")
		}
		result := manager.Signup(ctx, args[1], args[2], args[3])
		printResult("signup", result)
		printStatus(manager)

	case "logout":
		manager.Logout()
		printStatus(manager)

	case "refresh":
		result := manager.RefreshSession(ctx)
		printResult("refresh", result)

	case "lang":
		if len(args) != 2 {
			return errors.New("usage: authdemo lang <en|ms>")
		}
		if err := languages.SetLanguage(i18n.Language(args[1])); err != nil {
			return err
		}
		fmt.Printf("Language set to %s\n", args[1])

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func startDemoBackend(cfg *config.Config, logger zerolog.Logger) (string, error) {
	srv := demoserver.New([]byte("authdemo-signing-key"), logger)
	if _, err := srv.Seed("Demo User", "demo@example.com", "demo123", cfg.DefaultAvatarURL, "customer"); err != nil {
		return "", fmt.Errorf("demoserver seed: %w", err)
	}

	httpServer := &http.Server{Addr: ":" + cfg.DemoPort, Handler: srv}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("demo backend stopped")
		}
	}()
	// Give the listener a moment before the first request.
	time.Sleep(50 * time.Millisecond)

	addr := "http://localhost:" + cfg.DemoPort
	fmt.Printf("Embedded demo backend on %s (account demo@example.com / demo123)\n\n", addr)
	return addr, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

func printStatus(manager *session.Manager) {
	if user := manager.CurrentUser(); user != nil {
		fmt.Printf("Session: %s as %s <%s> (role %s)\n", manager.State(), user.Name, user.Email, user.Role)
		return
	}
	fmt.Printf("Session: %s\n", manager.State())
}

func printResult(op string, result session.Result) {
	if result.Success {
		fmt.Printf("%s: ok\n", op)
		return
	}
	fmt.Printf("%s: %s\n", op, result.Error)
}

func printUsage() {
	fmt.Println(`Commands:
  status
  login <email> <password>
  signup <name> <email> <password>
  logout
  refresh
  lang <en|ms>`)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
