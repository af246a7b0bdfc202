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

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/CrowderSoup/taskboard/database"
	"github.com/CrowderSoup/taskboard/handlers"
	"github.com/CrowderSoup/taskboard/logging"
	"github.com/CrowderSoup/taskboard/ordering"
	"github.com/CrowderSoup/taskboard/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the board server",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")

		cfg, err := LoadConfig(configPath, envFile)
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
	serveCmd.Flags().String("env-file", ".env", "Path to a .env file (ignored if missing)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg Config, log zerolog.Logger) error {
	store, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	locks := ordering.NewLocks()
	authService, err := services.NewAuthService(cfg.JWTSecret)
	if err != nil {
		return err
	}
	feed := services.NewRemovalFeed(64)
	fanout := services.NewFanout(log, feed)

	boardService := services.NewBoardService(store, locks, fanout, authService, log)
	listService := services.NewListService(store, locks, fanout, log)
	cardService := services.NewCardService(store, locks, fanout, log)
	subtaskService := services.NewSubtaskService(store, locks, fanout, log)
	tagService := services.NewTagService(store, locks, fanout, log)

	hub := services.NewHub(boardService.AuthorizeChannel, log)
	fanout.Add(hub)

	if cfg.RedisURL != "" {
		mirror, err := services.NewRedisMirror(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer mirror.Close()
		fanout.Add(mirror)
		log.Info().Msg("mirroring events to redis")
	}

	router := &handlers.Router{
		Auth:       handlers.NewAuthHandler(authService),
		Boards:     handlers.NewBoardHandler(boardService, listService, tagService),
		Lists:      handlers.NewListHandler(listService, cardService),
		Cards:      handlers.NewCardHandler(cardService, subtaskService, tagService),
		Subtasks:   handlers.NewSubtaskHandler(subtaskService),
		Tags:       handlers.NewTagHandler(tagService),
		Live:       handlers.NewLiveHandler(hub, feed, boardService, cfg.LongPollTimeout),
		Middleware: handlers.NewAuthMiddleware(authService),
		Log:        log,
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	// long polls must finish before the write deadline
	writeTimeout := max(15*time.Second, cfg.LongPollTimeout+10*time.Second)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(router.Handler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("db", store.Dialect().String()).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
