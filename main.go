package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/cache"
	"github.com/xiaot623/gogo/chatbot/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatbot/internal/adapter/mail"
	"github.com/xiaot623/gogo/chatbot/internal/commerce"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/files"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
	"github.com/xiaot623/gogo/chatbot/internal/metrics"
	"github.com/xiaot623/gogo/chatbot/internal/policy"
	"github.com/xiaot623/gogo/chatbot/internal/repository"
	"github.com/xiaot623/gogo/chatbot/internal/retrieval"
	"github.com/xiaot623/gogo/chatbot/internal/service"
	"github.com/xiaot623/gogo/chatbot/internal/tracing"
	transporthttp "github.com/xiaot623/gogo/chatbot/internal/transport/http"
	"github.com/xiaot623/gogo/chatbot/internal/transport/rpc"
	"github.com/xiaot623/gogo/chatbot/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Mode:     cfg.Logging.Mode,
		Level:    cfg.Logging.Level,
		Redact:   true,
		HashSalt: cfg.Logging.HashSalt,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting chatbot engine",
		"http_port", cfg.Server.HTTPPort,
		"rpc_port", cfg.Server.RPCPort,
		"mode", cfg.API.Mode)

	shutdownTracing, err := tracing.Init(log, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	opts := []service.Option{service.WithMetrics(m)}
	retrieverOpts := []retrieval.Option{
		retrieval.WithSnippetChars(cfg.Training.SnippetChars),
		retrieval.WithLogger(log),
	}

	// Search cache is optional; the engine runs without Redis.
	if cfg.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := cache.Connect(pingCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			log.Warn("search cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer rdb.Close()
			searchCache := cache.NewSearchCache(rdb, cfg.Redis.SearchCacheTTL)
			retrieverOpts = append(retrieverOpts, retrieval.WithCache(searchCache))
			opts = append(opts, service.WithSearchInvalidator(searchCache))
		}
	}
	opts = append(opts, service.WithSearcher(retrieval.New(db, retrieverOpts...)))

	if cfg.Commerce.Enabled {
		policyEngine, err := policy.NewEngine(ctx, policy.DefaultOrderPolicy)
		if err != nil {
			return fmt.Errorf("init order policy: %w", err)
		}
		lookup := commerce.NewLookup(db, policyEngine, commerce.Config{
			RequireEmail: cfg.Commerce.RequireEmail,
			MaxDaysBack:  cfg.Commerce.MaxDaysBack,
			Template:     cfg.Commerce.ResponseTemplate,
		})
		opts = append(opts, service.WithOrderLookup(lookup))
	}

	uploads, err := files.New(files.Config{
		Dir:           cfg.File.Dir,
		AllowedTypes:  cfg.File.AllowedTypes,
		MaxSize:       cfg.File.MaxFileSize,
		RetentionDays: cfg.File.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("init uploads: %w", err)
	}
	opts = append(opts, service.WithFileStore(uploads))

	// Without mail credentials captured contacts only reach the log.
	if cfg.Contacts.NotifyOnCapture && cfg.Email.Enabled() {
		sender, err := mail.NewSendGrid(mail.Config{
			APIKey:  cfg.Email.APIKey,
			BaseURL: cfg.Email.BaseURL,
			From:    mail.Address{Email: cfg.Email.FromEmail, Name: cfg.Email.FromName},
			Timeout: cfg.Email.Timeout,
		})
		if err != nil {
			return fmt.Errorf("init mail: %w", err)
		}
		opts = append(opts, service.WithNotifier(service.NewEmailNotifier(sender, cfg.Email)))
	}

	providers := llm.NewRegistryFromSettings(llm.Settings{
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.API.OpenAI.APIKey,
			BaseURL: cfg.API.OpenAI.BaseURL,
		},
		OpenRouter: llm.OpenRouterConfig{
			APIKey:  cfg.API.OpenRouter.APIKey,
			BaseURL: cfg.API.OpenRouter.BaseURL,
			SiteURL: cfg.API.OpenRouter.SiteURL,
			AppName: cfg.API.OpenRouter.AppName,
		},
		OpenWebUI: llm.OpenWebUIConfig{
			BaseURL: cfg.API.OpenWebUI.BaseURL,
			APIKey:  cfg.API.OpenWebUI.APIKey,
		},
		Timeout: cfg.API.RequestTimeout,
		Mode:    cfg.API.Mode,
	}, nil)

	// Initialize service
	svc := service.New(db, providers, cfg, log, opts...)
	if err := svc.SeedChatbots(ctx); err != nil {
		return err
	}

	wsServer := ws.NewServer(cfg.WebSocket, svc, log)
	httpServer := transporthttp.NewServer(svc, transporthttp.Options{
		WebSocket: wsServer,
		Metrics:   m,
		Gatherer:  reg,
		Logger:    log,
	})
	rpcServer, err := rpc.NewServer(svc, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		log.Info("http server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.Server.RPCPort > 0 {
		g.Go(func() error {
			addr := fmt.Sprintf(":%d", cfg.Server.RPCPort)
			log.Info("rpc server listening", "addr", addr)
			if err := rpcServer.Start(addr); err != nil {
				return fmt.Errorf("rpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		svc.RunSessionMonitor(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down chatbot engine")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(
			httpServer.Shutdown(shutdownCtx),
			rpcServer.Shutdown(shutdownCtx),
			shutdownTracing(shutdownCtx),
		)
	})

	err = g.Wait()
	log.Info("chatbot engine stopped")
	return err
}
