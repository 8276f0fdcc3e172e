package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/akiross/trellobot/api"
	"github.com/akiross/trellobot/database"
	"github.com/akiross/trellobot/integrations"
	"github.com/akiross/trellobot/internal/config"
	"github.com/akiross/trellobot/internal/schedule"
	"github.com/akiross/trellobot/internal/store"
	"github.com/akiross/trellobot/internal/update"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := logConfig.Build()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		zap.L().Fatal("Error reading config file", zap.Error(err))
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "cards.db"
	}
	db := database.Init(dbPath)
	sqlDB, _ := db.DB()

	port := viper.GetString("server.port")
	if port == "" {
		port = "8080"
	}

	trelloClient := integrations.NewTrelloClient(
		viper.GetString("trello.api_key"),
		viper.GetString("trello.api_token"),
	)

	botToken := viper.GetString("telegram.bot_token")
	chatID := viper.GetInt64("telegram.chat_id")
	if botToken == "" || chatID == 0 {
		zap.L().Fatal("telegram.bot_token and telegram.chat_id must be configured")
	}
	notifier := integrations.NewTelegramNotifier(botToken, chatID)

	filter := config.NewBoardFilter(
		viper.GetStringSlice("trello.board_whitelist"),
		viper.GetStringSlice("trello.board_blacklist"),
	)
	saveFilter := func() error {
		whitelist, blacklist := filter.Snapshot()
		viper.Set("trello.board_whitelist", whitelist)
		viper.Set("trello.board_blacklist", blacklist)
		return viper.WriteConfig()
	}

	loc := time.UTC
	if tz := viper.GetString("update.timezone"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			zap.L().Fatal("Invalid update.timezone", zap.String("timezone", tz), zap.Error(err))
		}
	}

	cardStore := store.New(db)
	scheduler := schedule.New(cardStore, notifier, loc)
	orchestrator := update.NewOrchestrator(trelloClient, cardStore, scheduler, filter)

	intervalMins := viper.GetInt("update.interval_minutes")
	if intervalMins == 0 {
		intervalMins = 10
	}
	interval := time.Duration(intervalMins) * time.Minute
	runner := update.NewRunner(orchestrator, interval)

	router := gin.Default()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	apiHandler := &api.Handler{
		Orchestrator: orchestrator,
		Filter:       filter,
		SaveFilter:   saveFilter,
	}
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/update", apiHandler.UpdateHandler)
		apiGroup.GET("/tracked", apiHandler.TrackedHandler)
		apiGroup.GET("/boards", apiHandler.BoardsHandler)
		apiGroup.POST("/boards/whitelist", apiHandler.WhitelistHandler)
		apiGroup.POST("/boards/blacklist", apiHandler.BlacklistHandler)
		apiGroup.GET("/health", apiHandler.HealthCheckHandler)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	zap.L().Info("Starting server", zap.String("port", port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	// Initial scan before the recurring runner takes over.
	if summary, err := orchestrator.RunCycle(context.Background()); err != nil {
		zap.L().Error("Initial update cycle failed", zap.Error(err))
	} else {
		zap.L().Info("Initial update cycle finished", zap.String("summary", summary.String()))
	}

	runner.Start()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		runner.Stop()
		zap.L().Info("Update runner stopped.")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}

		if sqlDB != nil {
			if err := sqlDB.Close(); err != nil {
				zap.L().Error("Error closing database", zap.Error(err))
			} else {
				zap.L().Info("Database connection closed.")
			}
		}
		close(done)
	}

	go func() {
		sig := <-sigCh
		once.Do(func() {
			cleanup(sig.String())
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	<-done
	zap.L().Info("Exiting...")
}
