package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/labsignoff/config"
	"github.com/lshigami/labsignoff/internal/controller"
	"github.com/lshigami/labsignoff/internal/eventloop"
	"github.com/lshigami/labsignoff/internal/logger"
	"github.com/lshigami/labsignoff/internal/repository"
	"github.com/lshigami/labsignoff/internal/service"
	"github.com/lshigami/labsignoff/internal/view"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

func main() {
	// Bootstrap logger until the configured level is known.
	logger.Init(os.Getenv("LOG_LEVEL"))

	app := fx.New(
		fx.NopLogger,

		// Core
		fx.Provide(
			config.NewConfig,
			NewEventLoop,
			view.NewDocument,
			func(doc *view.Document) view.Renderer { return doc },
			repository.NewAPIClient,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewStudentRepository,
			repository.NewPartRepository,
			repository.NewCriteriaRepository,
			repository.NewSignoffRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewScoreConverterService,
			NewTypeahead,
			service.NewSignoffSession,
		),

		fx.Invoke(
			func(cfg *config.Config) { logger.Init(cfg.LogLevel) },
			StartFixtureServer,
			StartConsole,
		),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Shutting down...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop application cleanly")
	}
}

// NewEventLoop ties the UI loop to the application lifecycle.
func NewEventLoop(lc fx.Lifecycle) *eventloop.Loop {
	loop := eventloop.New()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loop.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			loop.Stop()
			return nil
		},
	})
	return loop
}

func NewTypeahead(cfg *config.Config, loop *eventloop.Loop, repo repository.StudentRepository, doc *view.Document) (service.SearchTypeahead, error) {
	return service.NewSearchTypeahead(loop, repo, doc, doc.Field(view.SearchInput), service.TypeaheadOptionsFromConfig(cfg))
}

// StartFixtureServer serves the in-memory lab API when running offline.
func StartFixtureServer(lc fx.Lifecycle, cfg *config.Config, converter service.ScoreConverterService) {
	if !cfg.Fixture.Offline {
		return
	}

	gin.SetMode(gin.ReleaseMode)
	store := controller.NewFixtureStore()
	store.SeedDemo()
	router := controller.NewGinEngine()
	controller.NewLabController(store, converter, cfg.API).RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Fixture.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Fixture lab API starting on port %s", cfg.Fixture.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Fixture server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Fixture server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
