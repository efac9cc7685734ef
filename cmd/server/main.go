package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/infrastructure/cloudinary"
	"github.com/example/storefront/internal/infrastructure/github"
	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/tracer"
)

// build is the git version of this application. It is set using build flags.
var build = "develop"

func main() {
	if err := run(); err != nil {
		log.Printf("error: %s", err)
		os.Exit(1)
	}
}

func run() error {

	// =========================================================================
	// Configuration

	var cfg struct {
		conf.Version
		Web struct {
			Host            string        `conf:"default:0.0.0.0:8080"`
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:15s"`
			IdleTimeout     time.Duration `conf:"default:1m"`
			ShutdownTimeout time.Duration `conf:"default:5s"`
		}
		Admin struct {
			Password     string        `conf:"noprint"`
			PasswordHash string        `conf:"noprint"`
			SessionTTL   time.Duration `conf:"default:24h"`
		}
		GitHub struct {
			Owner    string
			Repo     string
			Branch   string `conf:"default:main"`
			Token    string `conf:"noprint"`
			FilePath string `conf:"default:data.json"`
			APIBase  string `conf:"default:https://api.github.com"`
		}
		Cloudinary struct {
			CloudName string
			APIKey    string `conf:"noprint"`
			APISecret string `conf:"noprint"`
			Folder    string `conf:"default:storefront-products"`
		}
		Redis struct {
			URL string `conf:"noprint"`
		}
		Zipkin struct {
			ReporterURI string
		}
		Args conf.Args
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "storefront catalog and session service"

	if err := conf.Parse(os.Args[1:], "STOREFRONT", &cfg); err != nil {
		if err == conf.ErrHelpWanted {
			usage, err := conf.Usage("STOREFRONT", &cfg)
			if err != nil {
				return errors.Wrap(err, "generating usage")
			}
			fmt.Println(usage)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		return errors.New("github owner and repo are required")
	}

	log.Printf("[Server] Started : version %q", build)
	defer log.Println("[Server] Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	log.Printf("[Server] Config:\n%v", out)

	// =========================================================================
	// Tracing

	if cfg.Zipkin.ReporterURI != "" {
		shutdown, err := tracer.Init("storefront", cfg.Zipkin.ReporterURI, log.Default())
		if err != nil {
			return errors.Wrap(err, "initializing tracer")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
		log.Printf("[Server] Tracing enabled: %s", cfg.Zipkin.ReporterURI)
	}

	// =========================================================================
	// Session store

	var sessionStore session.Store
	if cfg.Redis.URL != "" {
		redisStore, err := session.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			return errors.Wrap(err, "connecting session store")
		}
		defer redisStore.Close()
		sessionStore = redisStore
		log.Println("[Server] Session store: redis")
	} else {
		sessionStore = session.NewMemoryStore()
		log.Println("[Server] Session store: in-memory (single instance only)")
	}

	gate := session.NewGate(sessionStore, cfg.Admin.Password, cfg.Admin.PasswordHash, cfg.Admin.SessionTTL)

	// =========================================================================
	// Services

	contentsStore := github.NewClient(github.Config{
		Owner:   cfg.GitHub.Owner,
		Repo:    cfg.GitHub.Repo,
		Branch:  cfg.GitHub.Branch,
		Token:   cfg.GitHub.Token,
		BaseURL: cfg.GitHub.APIBase,
	})
	catalogSvc := catalog.NewService(contentsStore, cfg.GitHub.FilePath)

	uploader := cloudinary.NewClient(cloudinary.Config{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
	})

	router := api.NewRouter(api.RouterConfig{
		Handlers:     api.NewHandlers(catalogSvc, uploader, cfg.Cloudinary.Folder),
		AuthHandlers: api.NewAuthHandlers(gate),
		Gate:         gate,
	})

	// =========================================================================
	// Start HTTP server

	server := &http.Server{
		Addr:         cfg.Web.Host,
		Handler:      router,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", cfg.Web.Host)
		serverErrors <- server.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		log.Printf("[Server] %v: Start shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Printf("[Server] Graceful shutdown did not complete in %v: %v", cfg.Web.ShutdownTimeout, err)
			if err := server.Close(); err != nil {
				return errors.Wrap(err, "could not stop server gracefully")
			}
		}
	}

	return nil
}
