package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/config"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/events"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/handler"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/registry"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/room"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/scoreboard"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/ws"
	"github.com/koopa0/system-design/14-arcade-rooms/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 解析命令行參數
	var (
		configPath = flag.String("config", "", "設定檔路徑 (YAML)")
		port       = flag.Int("port", 0, "服務器端口，覆蓋設定檔")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, logCloser, err := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		AddSource: cfg.Log.AddSource,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	recorder, closeRedis, err := setupRecorder(cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	publisher, err := setupPublisher(cfg, log)
	if err != nil {
		return err
	}

	reg := registry.New(registry.Options{
		MailboxSize: cfg.Registry.MailboxSize,
		ChatRoom:    cfg.Registry.ChatRoom,
		ReportQueue: cfg.Registry.ReportQueue,
		Room: room.Options{
			TickInterval: cfg.Game.TickInterval,
			MaxShots:     cfg.Game.MaxShots,
		},
		Recorder:  recorder,
		Publisher: publisher,
	}, log)

	hub := ws.NewHub(reg, ws.Options{
		HeartbeatInterval: cfg.Session.HeartbeatInterval,
		ClientTimeout:     cfg.Session.ClientTimeout,
		SendBuffer:        cfg.Session.SendBuffer,
		MaxMessageSize:    cfg.Session.MaxMessageSize,
		RateCapacity:      cfg.Session.RateLimit.Capacity,
		RateRefill:        cfg.Session.RateLimit.RefillRate,
		ChatRoom:          cfg.Registry.ChatRoom,
	}, log)

	h := handler.NewHandler(reg, hub, recorder, log)

	// 設置路由；/ws 不經過 handler 的中間件，保留 Hijacker
	mux := http.NewServeMux()
	mux.Handle("/", h.Routes())
	mux.HandleFunc("GET /ws", hub.ServeWS)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("arcade server starting",
			"port", cfg.Server.Port,
			"tick_interval", cfg.Game.TickInterval,
			"redis", cfg.Redis.Enabled,
			"nats", cfg.NATS.Enabled)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 等待中斷信號
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	// 優雅關閉：先停止接受新連接，再關閉連線、註冊中心與外部服務
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}
	hub.Stop()
	reg.Stop()
	if err := publisher.Close(); err != nil {
		log.Warn("event publisher close failed", "error", err)
	}

	log.Info("arcade server stopped")
	return nil
}

// setupRecorder 依設定選擇 Redis 或記憶體記錄器
func setupRecorder(cfg *config.Config, log *slog.Logger) (scoreboard.Recorder, func(), error) {
	if !cfg.Redis.Enabled {
		return scoreboard.NewMemory(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})

	rec := scoreboard.NewRedis(client, cfg.Redis.KeyPrefix)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	defer cancel()
	if err := rec.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	log.Info("redis scoreboard connected", "addr", cfg.Redis.Addr)
	return rec, func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}, nil
}

// setupPublisher 依設定選擇 NATS 或不發布
func setupPublisher(cfg *config.Config, log *slog.Logger) (events.Publisher, error) {
	if !cfg.NATS.Enabled {
		return events.Nop{}, nil
	}

	pub, err := events.Dial(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		return nil, err
	}

	log.Info("nats publisher connected", "url", cfg.NATS.URL)
	return pub, nil
}
