package grpc_control

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ahfrd/grpc-stream-client-side/src/config"
	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

type ctrlStub struct {
	mu          sync.Mutex
	state       models.MConnectionState
	snapshot    models.MLatestData
	connectErr  error
	paramsErr   error
	connects    int
	disconnects int
	lastParams  models.MSubscriptionParams
}

func (s *ctrlStub) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	return s.connectErr
}

func (s *ctrlStub) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
}

func (s *ctrlStub) SetParameters(params models.MSubscriptionParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paramsErr != nil {
		return s.paramsErr
	}
	s.lastParams = params
	return nil
}

func (s *ctrlStub) State() models.MConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ctrlStub) Snapshot() models.MLatestData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *ctrlStub) History(int) []models.MSummaryPoint { return nil }

func (s *ctrlStub) Close() {}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func newTestService(ctrl *ctrlStub) *ControlService {
	return NewControlService(nil, ctrl, "", logger.NewLogger("error", "Control"))
}

func persistableConfig() *config.Config {
	cfg := &models.MConfig{
		Name:     "test-client",
		Host:     "127.0.0.1",
		Port:     8000,
		LogLevel: "error",
		FeedHost: "localhost",
		FeedPort: 50051,
	}
	cfg.Subscription.Filter = models.FilterAll
	cfg.Subscription.SortKey = models.SortByCode
	cfg.Subscription.DebounceMillis = 100
	cfg.Storage.DBType = "sqlite"
	cfg.Storage.DBPath = "stream.db"
	return &config.Config{MConfig: cfg}
}

// -----------------------------------------------------------------------------

func TestConnectReportsControllerState(t *testing.T) {
	ctrl := &ctrlStub{state: models.MConnectionState{IsConnected: true, MessageCount: 7}}
	svc := newTestService(ctrl)

	resp, err := svc.Connect(context.Background(), &MControlRequest{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "connecting", resp.Message)
	assert.True(t, resp.State.IsConnected)
	assert.Equal(t, int64(7), resp.State.MessageCount)
	assert.Equal(t, 1, ctrl.connects)
}

func TestConnectFailureIsReportedInBand(t *testing.T) {
	ctrl := &ctrlStub{connectErr: helpers.ErrTransportUninitialized}
	svc := newTestService(ctrl)

	resp, err := svc.Connect(context.Background(), &MControlRequest{})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, helpers.ErrTransportUninitialized.Error(), resp.Message)
}

// -----------------------------------------------------------------------------

func TestDisconnectAlwaysSucceeds(t *testing.T) {
	ctrl := &ctrlStub{}
	svc := newTestService(ctrl)

	resp, err := svc.Disconnect(context.Background(), &MControlRequest{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "disconnected", resp.Message)
	assert.Equal(t, 1, ctrl.disconnects)
}

// -----------------------------------------------------------------------------

func TestSetParametersRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		req  *MParametersRequest
	}{
		{"missing filter", &MParametersRequest{SortKey: models.SortByCode}},
		{"missing sort key", &MParametersRequest{Filter: models.FilterAll}},
		{"missing both", &MParametersRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &ctrlStub{}
			svc := newTestService(ctrl)

			_, err := svc.SetParameters(context.Background(), tt.req)
			require.Error(t, err)

			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, codes.InvalidArgument, st.Code())
			assert.Zero(t, ctrl.lastParams)
		})
	}
}

func TestSetParametersValidationFailureBecomesInvalidArgument(t *testing.T) {
	ctrl := &ctrlStub{paramsErr: &helpers.ValidationError{StreamClientError: helpers.StreamClientError{
		Message: "unknown filter or sort key: bogus/code",
	}}}
	svc := newTestService(ctrl)

	_, err := svc.SetParameters(context.Background(), &MParametersRequest{Filter: "bogus", SortKey: models.SortByCode})
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), "bogus")
}

func TestSetParametersOperationalFailureIsReportedInBand(t *testing.T) {
	ctrl := &ctrlStub{paramsErr: errors.New("controller is closed")}
	svc := newTestService(ctrl)

	resp, err := svc.SetParameters(context.Background(), &MParametersRequest{
		Filter:  models.FilterLQ45,
		SortKey: models.SortByValue,
	})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "controller is closed", resp.Message)
}

func TestSetParametersAppliesAndPersists(t *testing.T) {
	ctrl := &ctrlStub{}
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	svc := NewControlService(persistableConfig(), ctrl, cfgPath, logger.NewLogger("error", "Control"))

	resp, err := svc.SetParameters(context.Background(), &MParametersRequest{
		Filter:  models.FilterIDX30,
		SortKey: models.SortByTotalVolume,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	assert.Equal(t, models.FilterIDX30, ctrl.lastParams.Filter)
	assert.Equal(t, models.SortByTotalVolume, ctrl.lastParams.SortKey)

	// The saved file must reload with the new parameters in place.
	reloaded, err := config.NewConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, models.FilterIDX30, reloaded.Subscription.Filter)
	assert.Equal(t, models.SortByTotalVolume, reloaded.Subscription.SortKey)
}

func TestSetParametersWithoutConfigSkipsPersistence(t *testing.T) {
	ctrl := &ctrlStub{}
	svc := newTestService(ctrl)

	resp, err := svc.SetParameters(context.Background(), &MParametersRequest{
		Filter:  models.FilterKompas100,
		SortKey: models.SortByPercentChange,
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, models.FilterKompas100, ctrl.lastParams.Filter)
}

// -----------------------------------------------------------------------------

func TestGetStateMirrorsSnapshot(t *testing.T) {
	ctrl := &ctrlStub{snapshot: models.MLatestData{
		State:  models.MConnectionState{IsConnected: true, MessageCount: 12},
		Params: models.MSubscriptionParams{Filter: models.FilterLQ45, SortKey: models.SortByPrice},
		Instruments: []models.MInstrument{
			{Code: "BBCA"},
			{Code: "TLKM"},
		},
		Summary: models.MMarketSummary{Instruments: 2, Advancing: 1, Declining: 1},
		Stats:   models.MStreamStats{BatchesOK: 12, SessionsOpened: 1},
	}}
	svc := newTestService(ctrl)

	resp, err := svc.GetState(context.Background(), &MControlRequest{})
	require.NoError(t, err)

	assert.True(t, resp.State.IsConnected)
	assert.Equal(t, models.FilterLQ45, resp.Params.Filter)
	assert.Equal(t, 2, resp.Instruments)
	assert.Equal(t, 1, resp.Summary.Advancing)
	assert.Equal(t, int64(12), resp.Stats.BatchesOK)
}

// -----------------------------------------------------------------------------
// Handler plumbing
// -----------------------------------------------------------------------------

func TestConnectHandlerDispatchesWithoutInterceptor(t *testing.T) {
	ctrl := &ctrlStub{}
	svc := newTestService(ctrl)

	dec := func(interface{}) error { return nil }
	resp, err := connectHandler(svc, context.Background(), dec, nil)
	require.NoError(t, err)

	out, ok := resp.(*MControlResponse)
	require.True(t, ok)
	assert.True(t, out.Success)
	assert.Equal(t, 1, ctrl.connects)
}

func TestConnectHandlerPropagatesDecodeError(t *testing.T) {
	svc := newTestService(&ctrlStub{})

	decErr := errors.New("bad payload")
	_, err := connectHandler(svc, context.Background(), func(interface{}) error { return decErr }, nil)
	assert.ErrorIs(t, err, decErr)
}

func TestSetParametersHandlerRunsInterceptor(t *testing.T) {
	ctrl := &ctrlStub{}
	svc := newTestService(ctrl)

	var gotMethod string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		gotMethod = info.FullMethod
		return handler(ctx, req)
	}
	dec := func(v interface{}) error {
		*(v.(*MParametersRequest)) = MParametersRequest{Filter: models.FilterIDX80, SortKey: models.SortByChange}
		return nil
	}

	resp, err := setParametersHandler(svc, context.Background(), dec, interceptor)
	require.NoError(t, err)

	out, ok := resp.(*MControlResponse)
	require.True(t, ok)
	assert.True(t, out.Success)
	assert.Equal(t, MethodSetParameters, gotMethod)
	assert.Equal(t, models.FilterIDX80, ctrl.lastParams.Filter)
}
