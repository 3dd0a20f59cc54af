package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/mail"
	"github.com/yukikurage/team-task-api/internal/realtime"
	"github.com/yukikurage/team-task-api/internal/server"
	"github.com/yukikurage/team-task-api/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Connects the store and cache, runs migrations, and serves the API with its outbox and realtime hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		l := logger.Setup(cfg.LogLevel, nil)
		gin.SetMode(cfg.GinMode)

		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := cache.Connect(ctx, cache.Options{
			Addr:           cfg.Redis.Addr(),
			Password:       cfg.Redis.Password,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
		}, l)
		defer c.Close()

		hub := realtime.NewHub(allowOrigin(cfg.FrontendURL), l)

		var outbox *events.Outbox
		var dispatcher events.Dispatcher
		if cfg.Outbox.Workers == 0 {
			dispatcher = events.NewInline(hub, l)
		} else {
			outbox = events.NewOutbox(hub, cfg.Outbox.Workers, cfg.Outbox.Buffer, l)
			dispatcher = outbox
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Run(ctx)
		}()

		// Initialize AI service
		var ai services.TaskExtractor
		if cfg.OpenAIAPIKey != "" {
			ai = services.NewAIService(cfg.OpenAIAPIKey)
		} else {
			l.Info("OPENAI_API_KEY not set, task generation disabled")
		}

		srv, err := server.New(server.Deps{
			Config: cfg,
			DB:     db,
			Cache:  c,
			Events: dispatcher,
			Hub:    hub,
			Mailer: mail.New(cfg.Email, l),
			AI:     ai,
			Logger: l,
		})
		if err != nil {
			return err
		}

		err = serveThenDrain(ctx, srv.Run, outbox)
		stop()
		wg.Wait()
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	},
}

// serveThenDrain runs serve until it returns and only then stops the outbox,
// so events emitted by requests finishing during shutdown are delivered
func serveThenDrain(ctx context.Context, serve func(context.Context) error, outbox *events.Outbox) error {
	if outbox == nil {
		return serve(ctx)
	}

	outboxCtx, stopOutbox := context.WithCancel(context.WithoutCancel(ctx))
	defer stopOutbox()

	done := make(chan struct{})
	go func() {
		defer close(done)
		outbox.Run(outboxCtx)
	}()

	err := serve(ctx)
	stopOutbox()
	<-done
	return err
}

// allowOrigin accepts websocket handshakes from the frontend and from
// non-browser clients that send no Origin header
func allowOrigin(frontendURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if strings.TrimSuffix(origin, "/") == strings.TrimSuffix(frontendURL, "/") {
			return true
		}
		slog.Warn("websocket origin rejected", "origin", origin)
		return false
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
