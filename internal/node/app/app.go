package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	httpHandler "github.com/anthanhphan/go-distributed-search/internal/node/adapter/inbound/http"
	"github.com/anthanhphan/go-distributed-search/internal/node/adapter/outbound/gossip"
	"github.com/anthanhphan/go-distributed-search/internal/node/config"
	"github.com/anthanhphan/go-distributed-search/internal/node/service"
	"github.com/anthanhphan/go-distributed-search/pkg/timesource"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg     *config.Config
	server  *httpHandler.Server
	gossip  *gossip.GossipAdapter
	manager *service.StateManager
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. Time source: Redis-agreed clock when configured, system clock otherwise
	var ts timesource.TimeSource = timesource.SystemTimeSource{}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ts = timesource.NewRedisTimeSource(redisClient)
	}

	// 4. State Manager
	manager := service.NewStateManager(ts)

	// 5. Gossip membership
	// If NodeName is empty, generate it based on hostname and port
	nodeName := cfg.Server.NodeName
	if nodeName == "" {
		host, _ := os.Hostname()
		nodeName = fmt.Sprintf("%s-%d", host, cfg.Server.AdminPort)
	}

	gossipAdapter, err := gossip.NewGossipAdapter(nodeName, cfg.Server.Hostname, cfg.Gossip.Port, cfg.Server.AdminPort, manager)
	if err != nil {
		return nil, fmt.Errorf("failed to init gossip: %w", err)
	}

	// 6. Admin HTTP Server
	httpServer := httpHandler.NewServer(cfg, manager)

	return &App{
		cfg:     cfg,
		server:  httpServer,
		gossip:  gossipAdapter,
		manager: manager,
	}, nil
}

func (a *App) Run() error {
	// Join the cluster via seeds
	if err := a.gossip.Join(a.cfg.Gossip.Seeds); err != nil {
		return fmt.Errorf("failed to join cluster: %w", err)
	}

	logger.Infow("Search node starting", "node", a.gossip.LocalNode(), "admin_port", a.cfg.Server.AdminPort)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = fmt.Errorf("admin server failed: %w", err)
		logger.Errorw("Admin server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down search node")
	if err := a.gossip.Leave(); err != nil {
		logger.Errorw("Gossip leave error", "error", err.Error())
	}
	if err := a.server.Stop(context.Background()); err != nil {
		logger.Errorw("Admin server shutdown error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	a.manager.Close()

	return runErr
}
