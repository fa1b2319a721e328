package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/cache"
	"github.com/ahfrd/grpc-stream-client-side/src/config"
	"github.com/ahfrd/grpc-stream-client-side/src/grpc_control"
	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/metrics"
	"github.com/ahfrd/grpc-stream-client-side/src/server"
	"github.com/ahfrd/grpc-stream-client-side/src/storage"
	"github.com/ahfrd/grpc-stream-client-side/src/subscription"
	"github.com/ahfrd/grpc-stream-client-side/src/transport"
	"github.com/ahfrd/grpc-stream-client-side/src/utils"
	"github.com/ahfrd/grpc-stream-client-side/src/watcher"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	autoConnect := flag.Bool("connect", false, "open the subscription immediately instead of waiting for a command")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Setup history store
	var db interfaces.IDatabase

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewAsyncSQLiteDB(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	// Databases in containers can refuse connections for a moment after start
	if _, err := helpers.RetryWithBackoff("database initialize", 3, time.Second, func() (interface{}, error) {
		return nil, db.Initialize()
	}); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 3. Metrics and venue calendar
	m := metrics.NewMetrics()
	cal := utils.GetCalendar(cfg.Market.MIC, cfg.Market.Timezone)

	// 4. Feed transport, primary plus configured fallbacks
	tr := transport.NewFailoverTransport(cfg.FeedTargets(), appLogger.Named("Transport"))
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Subscription controller
	ctrl := subscription.NewSubscriptionController(
		ctx,
		tr,
		cfg.DefaultParams(),
		time.Duration(cfg.Subscription.DebounceMillis)*time.Millisecond,
		utils.CalculateSummaryDepth(cfg.Subscription.HistoryMinutes),
		db,
		m,
		appLogger.Named("Controller"),
	)

	// 6. Optional snapshot cache
	var snapCache interfaces.ISnapshotCache
	if cfg.Cache.Enabled {
		snapCache, err = cache.NewRedisSnapshotCache(cfg.Cache, cfg.Name, appLogger.Named("Cache"))
		if err != nil {
			appLogger.Warning("Snapshot cache disabled: %v", err)
			snapCache = nil
		} else {
			defer snapCache.Close()
		}
	}

	// 7. Start API server, driven through the exchanger contract
	var exchanger interfaces.IDataExchanger = server.NewFastAPIServer(cfg.MConfig, ctrl, db, m, cal, appLogger.Named("Server"))
	exchanger.UpdateSnapshot(ctrl.Snapshot())

	go func() {
		if err := exchanger.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 8. Optional gRPC control plane, same JSON codec as the data plane
	if cfg.ControlPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.ControlPort))
		if err != nil {
			appLogger.Critical("Failed to listen on control port %d: %v", cfg.ControlPort, err)
		}

		controlServer := grpc.NewServer(grpc.ForceServerCodec(transport.JSONCodec{}))
		svc := grpc_control.NewControlService(cfg, ctrl, *configPath, appLogger.Named("Control"))
		grpc_control.RegisterControlServer(controlServer, svc)

		go func() {
			appLogger.Info("Control plane listening on %s", lis.Addr())
			if err := controlServer.Serve(lis); err != nil {
				appLogger.Critical("Control server failed: %v", err)
			}
		}()
		defer controlServer.GracefulStop()
	}

	// 9. Config hot reload drives parameter changes
	cw := watcher.NewConfigWatcher(*configPath, ctrl, appLogger.Named("Watcher"))
	go cw.Run(ctx)

	// 10. Follow venue hours when configured, otherwise wait for commands
	if cfg.Market.AutoSession {
		sched := utils.NewSessionScheduler(cfg.Market.MIC, cal, ctrl, appLogger.Named("Scheduler"))
		go sched.Run(ctx)
	}

	// 11. Optionally open the subscription right away
	if *autoConnect {
		if err := ctrl.Connect(); err != nil {
			appLogger.Error("Initial connect failed: %v", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	appLogger.Info("Starting update loop (Push Model)...")

	for {
		select {
		case update, ok := <-ctrl.Updates():
			if !ok {
				appLogger.Info("Controller closed update channel.")
				return
			}

			// Fan out: websocket observers first, then the external cache
			exchanger.Broadcast(update)

			if snapCache != nil {
				if err := snapCache.PublishSnapshot(ctx, &update); err != nil {
					appLogger.Warning("Failed to publish snapshot: %v", err)
				}
			}

		// Cleanup
		case <-cleanup.C:
			db.CleanupOldData()

		case <-quit:
			appLogger.Info("Shutting down...")
			ctrl.Disconnect()
			ctrl.Close()
			if err := exchanger.Stop(); err != nil {
				appLogger.Warning("Server shutdown: %v", err)
			}
			return
		}
	}
}
