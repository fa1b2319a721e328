package transport

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// -----------------------------------------------------------------------------

func testLogger() *logger.Logger {
	return logger.NewLogger("error", "Test")
}

// -----------------------------------------------------------------------------

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, true},
		{"wrapped context canceled", errors.Join(errors.New("rpc failed"), context.Canceled), true},
		{"grpc canceled status", status.Error(codes.Canceled, "context canceled"), true},
		{"grpc unavailable status", status.Error(codes.Unavailable, "feed down"), false},
		{"clean eof", io.EOF, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCancellation(tt.err))
		})
	}
}

func TestHumanizeError(t *testing.T) {
	assert.Equal(t, "", HumanizeError(nil))
	assert.Equal(t, "stream error: Unavailable: feed down", HumanizeError(status.Error(codes.Unavailable, "feed down")))
	assert.Equal(t, "stream error: EOF", HumanizeError(io.EOF))
}

// -----------------------------------------------------------------------------

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := JSONCodec{}
	assert.Equal(t, CodecName, codec.Name())

	in := &models.MRecordBatch{
		Code: models.BatchCodeOK,
		Instruments: []models.MInstrument{
			{Code: "BBCA", Name: "Bank Central Asia", Price: 9850, Change: 150, PercentChange: 1.55},
		},
	}

	raw, err := codec.Marshal(in)
	require.NoError(t, err)

	var out models.MRecordBatch
	require.NoError(t, codec.Unmarshal(raw, &out))
	assert.Equal(t, *in, out)
}

func TestSubscribeRequestWireNames(t *testing.T) {
	raw, err := JSONCodec{}.Marshal(&MSubscribeRequest{Filter: models.FilterIDX30, SortKey: models.SortByPercentChange})
	require.NoError(t, err)
	assert.JSONEq(t, `{"filter":"idx30","sort_key":"percent_change"}`, string(raw))
}

// -----------------------------------------------------------------------------

func TestTransportLifecycle(t *testing.T) {
	tr := NewGrpcStreamTransport("localhost:50051", testLogger())
	require.True(t, tr.Ready(), "a well formed target should produce a lazy connection")

	require.NoError(t, tr.Close())
	assert.False(t, tr.Ready())
	require.NoError(t, tr.Close(), "closing twice is harmless")

	_, err := tr.OpenStream(context.Background(), models.DefaultSubscriptionParams())
	require.Error(t, err, "a closed transport cannot open streams")
}
