package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/transport"

	"google.golang.org/grpc"
)

func main() {
	// 1. Parse command line flags
	port := flag.Int("port", 50051, "port to serve the stream feed on")
	interval := flag.Duration("interval", 2*time.Second, "delay between record batches")
	batches := flag.Int("batches", 0, "close each stream after N batches (0 = run until cancelled)")
	flakeRate := flag.Float64("flake", 0, "probability of emitting an anomalous batch (0..1)")
	level := flag.String("log-level", "info", "log level (debug, info, warning, error)")
	flag.Parse()

	appLogger := logger.NewLogger(*level, "FeedSim")

	// 2. Listen
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		appLogger.Critical("failed to listen on :%d: %v", *port, err)
	}

	// 3. Build the stream service
	svc := newFeedService(*interval, *batches, *flakeRate, appLogger)

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(transport.JSONCodec{}))
	grpcServer.RegisterService(&streamServiceDesc, svc)

	go func() {
		appLogger.Info("Serving %s on :%d (interval=%s, batches=%d, flake=%.2f)",
			transport.SubscribeMethod, *port, *interval, *batches, *flakeRate)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()

	// 4. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	grpcServer.GracefulStop()
}
