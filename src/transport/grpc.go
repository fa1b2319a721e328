package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// -----------------------------------------------------------------------------
// Feed method wiring
// -----------------------------------------------------------------------------

// SubscribeMethod is the fully qualified server streaming method of the feed.
const SubscribeMethod = "/marketdata.StockStream/Subscribe"

var subscribeStreamDesc = &grpc.StreamDesc{
	StreamName:    "Subscribe",
	ServerStreams: true,
}

// MSubscribeRequest is the single client message opening a subscription.
type MSubscribeRequest struct {
	Filter  string `json:"filter"`
	SortKey string `json:"sort_key"`
}

// -----------------------------------------------------------------------------
// GrpcStreamTransport
// -----------------------------------------------------------------------------

// GrpcStreamTransport opens subscription streams over one shared client
// connection. The connection is lazy, dialing happens on first stream use.
type GrpcStreamTransport struct {
	target string
	logger *logger.Logger

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGrpcStreamTransport builds the transport for the given feed target.
// A malformed target leaves the transport not ready instead of failing hard.
func NewGrpcStreamTransport(target string, log *logger.Logger) *GrpcStreamTransport {
	t := &GrpcStreamTransport{target: target, logger: log}

	conn, err := grpc.NewClient(
		target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(JSONCodec{})),
	)
	if err != nil {
		log.Error("Failed to create feed client for %s: %v", target, err)
		return t
	}

	t.conn = conn
	return t
}

// -----------------------------------------------------------------------------

// Ready reports whether the transport holds a usable connection.
func (t *GrpcStreamTransport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// -----------------------------------------------------------------------------

// OpenStream starts the Subscribe call, sends the request and half-closes,
// leaving a receive-only stream of record batches.
func (t *GrpcStreamTransport) OpenStream(ctx context.Context, params models.MSubscriptionParams) (interfaces.IRecordStream, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil, helpers.ErrTransportUninitialized
	}

	stream, err := conn.NewStream(ctx, subscribeStreamDesc, SubscribeMethod)
	if err != nil {
		return nil, &helpers.TransportError{StreamClientError: helpers.StreamClientError{
			Message: "failed to open subscribe stream", Cause: err}}
	}

	req := &MSubscribeRequest{Filter: params.Filter, SortKey: params.SortKey}
	if err := stream.SendMsg(req); err != nil {
		return nil, &helpers.TransportError{StreamClientError: helpers.StreamClientError{
			Message: "failed to send subscribe request", Cause: err}}
	}
	if err := stream.CloseSend(); err != nil {
		return nil, &helpers.TransportError{StreamClientError: helpers.StreamClientError{
			Message: "failed to half-close subscribe stream", Cause: err}}
	}

	t.logger.Debug("Opened subscribe stream to %s (filter=%s sort=%s)", t.target, params.Filter, params.SortKey)
	return &recordStream{stream: stream}, nil
}

// -----------------------------------------------------------------------------

// Close releases the shared connection. Open streams die with it.
func (t *GrpcStreamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// -----------------------------------------------------------------------------
// recordStream
// -----------------------------------------------------------------------------

type recordStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next batch. io.EOF passes through untouched so the
// consumer can tell a clean end from a failure.
func (s *recordStream) Recv() (*models.MRecordBatch, error) {
	var batch models.MRecordBatch
	if err := s.stream.RecvMsg(&batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// -----------------------------------------------------------------------------
// Error classification
// -----------------------------------------------------------------------------

// IsCancellation reports whether err is the local teardown of a stream rather
// than a delivery failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.Canceled {
		return true
	}
	return false
}

// HumanizeError turns a stream failure into the message shown in the
// connection state.
func HumanizeError(err error) string {
	if err == nil {
		return ""
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		return fmt.Sprintf("stream error: %s: %s", st.Code(), st.Message())
	}
	return fmt.Sprintf("stream error: %v", err)
}
