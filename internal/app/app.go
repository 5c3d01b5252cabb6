package app

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chargepilot/internal/config"
	"chargepilot/internal/events"
	"chargepilot/internal/handlers"
	"chargepilot/internal/httpapi"
	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
	"chargepilot/internal/persist"
	"chargepilot/internal/repository"
	"chargepilot/internal/schedule"
	"chargepilot/internal/service"
	"chargepilot/internal/ws"
)

// App wires all dependencies for the charge controller.
type App struct {
	httpServer *http.Server
	manager    *ws.Manager
	store      *service.Store
	gateway    *persist.Gateway
	timers     *schedule.Timers
	pool       *pgxpool.Pool
	redis      *redis.Client
	logger     *zap.Logger
}

// New builds the application graph. The snapshot is restored before the
// transport starts accepting connections.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store := service.NewStore()
	timers := schedule.NewTimers()
	bus := events.NewBus()
	manager := ws.NewManager(cfg.PingInterval())

	var pool *pgxpool.Pool
	var messageLog ocpp.MessageLog
	if cfg.Database.DSN != "" {
		var err error
		pool, err = repository.NewPostgresPool(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		messageLog = repository.NewMessageLog(pool)
	}

	var redisClient *redis.Client
	var gateway *persist.Gateway
	if cfg.Redis.Addr != "" {
		var err error
		redisClient, err = persist.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return nil, err
		}
		gateway = persist.NewGateway(persist.NewRedisBackend(redisClient, cfg.Redis.Key), logger)
		if err := gateway.Restore(ctx, store); err != nil {
			return nil, err
		}
	}

	control := service.NewChargeControl(store, timers, manager, bus, cfg.Charger.IdTag, cfg.CallTimeout(), logger)

	router := ocpp.NewRouter()
	router.Register(protocol.ActionBootNotification, handlers.NewBootNotificationHandler(logger))
	router.Register(protocol.ActionHeartbeat, handlers.NewHeartbeatHandler())
	router.Register(protocol.ActionStatusNotification, handlers.NewStatusNotificationHandler(control))
	router.Register(protocol.ActionStartTransaction, handlers.NewStartTransactionHandler(control))
	router.Register(protocol.ActionStopTransaction, handlers.NewStopTransactionHandler(control))
	router.Register(protocol.ActionMeterValues, handlers.NewMeterValuesHandler(control))

	processor := ocpp.NewProcessor(router, bus, messageLog, logger)
	wsServer := ws.NewServer(manager, processor, control, cfg.WriteTimeout(), logger)

	api := httpapi.NewHandlers(control, manager, cfg.TriggerAwaitTimeout(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ocpp/", wsServer.HandleWS)
	mux.Handle("/", httpapi.NewRouter(api, cfg.Auth.Secret))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &App{
		httpServer: httpServer,
		manager:    manager,
		store:      store,
		gateway:    gateway,
		timers:     timers,
		pool:       pool,
		redis:      redisClient,
		logger:     logger,
	}, nil
}

// Run starts manager and HTTP server; on shutdown the session snapshot is
// written before the listener closes.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.manager.Start(ctx)

	go func() {
		a.logger.Info("starting charge controller", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if a.gateway != nil {
			if err := a.gateway.Snapshot(shutdownCtx, a.store); err != nil {
				a.logger.Error("session snapshot failed", zap.Error(err))
			}
		}
		return a.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close releases resources.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
