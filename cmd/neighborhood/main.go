package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/neighborhood-life/internal/actions"
	"github.com/nidhogg/neighborhood-life/internal/alarm"
	"github.com/nidhogg/neighborhood-life/internal/api"
	"github.com/nidhogg/neighborhood-life/internal/config"
	"github.com/nidhogg/neighborhood-life/internal/director"
	"github.com/nidhogg/neighborhood-life/internal/news"
	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"github.com/nidhogg/neighborhood-life/internal/store"
	"github.com/nidhogg/neighborhood-life/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/neighborhood.json"
	}
	cfg := config.Get(cfgPath)

	zcfg := zap.NewDevelopmentConfig()
	if !cfg.VerboseLogging {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, _ := zcfg.Build()
	defer logger.Sync()

	logger.Info("Starting Neighborhood Life...", zap.String("config", cfgPath))
	if err := cfg.Validate(); err != nil {
		logger.Warn("config problems detected, affected schedules will be skipped", zap.Error(err))
	}

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// World simulation
	start := time.Now()
	if cfg.World.StartTime != "" {
		if t, err := time.Parse(time.RFC3339, cfg.World.StartTime); err == nil {
			start = t
		} else {
			logger.Warn("bad world start_time, using wall clock", zap.Error(err))
		}
	}
	interval := time.Duration(cfg.World.TickIntervalMS) * time.Millisecond
	clock := world.NewClock(start, interval, cfg.World.Speed, logger)
	weather := world.NewWeather(
		schedule.WeatherCategory(cfg.World.Weather),
		time.Duration(cfg.World.WeatherCadence)*time.Minute,
		seed+1, logger)
	clock.AddListener(weather)

	terrain := world.NewTerrain(cfg.World.LotWidth, cfg.World.LotDepth, logger)
	roster := world.NewRoster(seed+2, logger)
	for i, rc := range cfg.Residents {
		roster.Add(&world.Resident{
			Name:   rc.Name,
			Traits: rc.Traits,
			Player: rc.Player,
			Home: world.Position{
				X: cfg.World.LotWidth * float64(i+1) / float64(len(cfg.Residents)+1),
				Z: cfg.World.LotDepth * 0.1,
			},
			Present: true,
		})
	}
	if len(cfg.Residents) == 0 {
		logger.Warn("no residents configured, nothing to schedule")
	}

	alarms := alarm.New(logger)
	clock.AddListener(alarms)

	// Schedule core
	env := &world.Env{Clock: clock, Weather: weather}
	selector := schedule.NewSelector(seed + 3)
	builder := schedule.NewBuilder(cfg.TimeBlocks, cfg.BiasTables(), env, roster, selector, seed+4, logger)

	// News fan-out
	center := news.NewCenter(cfg.NewsEnabled, logger)
	center.AddSink(news.NewLogSink(logger))
	if cfg.Sinks.Discord.Enabled && cfg.Sinks.Discord.BotToken != "" {
		sink, err := news.NewDiscordSink(cfg.Sinks.Discord.BotToken, cfg.Sinks.Discord.ChannelID, logger)
		if err != nil {
			logger.Warn("Discord unavailable, running without it", zap.Error(err))
		} else {
			center.AddSink(sink)
		}
	}
	if cfg.Sinks.Slack.Enabled && cfg.Sinks.Slack.BotToken != "" {
		sink, err := news.NewSlackSink(cfg.Sinks.Slack.BotToken, cfg.Sinks.Slack.Channel, logger)
		if err != nil {
			logger.Warn("Slack unavailable, running without it", zap.Error(err))
		} else {
			center.AddSink(sink)
		}
	}
	if cfg.Sinks.Redis.URL != "" {
		sink, err := news.NewRedisSink(cfg.Sinks.Redis.URL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without it", zap.Error(err))
		} else {
			center.AddSink(sink)
		}
	}
	var archive api.NewsArchive
	if cfg.Sinks.Postgres.DSN != "" {
		journal, err := store.New(cfg.Sinks.Postgres.DSN, logger)
		if err != nil {
			logger.Warn("PostgreSQL unavailable, running without the journal", zap.Error(err))
		} else {
			center.AddSink(journal)
			archive = journal
		}
	}

	executor := actions.NewExecutor(terrain, roster, seed+5, logger)
	d := director.New(cfg.ParticipantCount, builder, alarms, env, roster, executor, center, logger)

	clock.Start()
	d.Activate()
	logger.Info("Neighborhood simulation started")

	// HTTP surface
	handler := api.NewHandler(clock, weather, roster, d, center, archive, logger)
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Neighborhood Life listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Neighborhood Life...")
	d.Deactivate()
	clock.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	center.Close()
}
