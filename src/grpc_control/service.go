package grpc_control

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahfrd/grpc-stream-client-side/src/config"
	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ControlService drives the subscription lifecycle over gRPC, mirroring the
// REST control surface for callers that already speak gRPC to the feed.
type ControlService struct {
	Config     *config.Config
	Controller interfaces.ISubscriptionController
	ConfigPath string
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	ctrl interfaces.ISubscriptionController,
	cfgPath string,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:     cfg,
		Controller: ctrl,
		ConfigPath: cfgPath,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) Connect(ctx context.Context, req *MControlRequest) (*MControlResponse, error) {
	if err := s.Controller.Connect(); err != nil {
		s.Logger.Warning("gRPC: connect failed: %v", err)
		return &MControlResponse{
			Success: false,
			Message: err.Error(),
			State:   s.Controller.State(),
		}, nil
	}

	return &MControlResponse{
		Success: true,
		Message: "connecting",
		State:   s.Controller.State(),
	}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) Disconnect(ctx context.Context, req *MControlRequest) (*MControlResponse, error) {
	s.Controller.Disconnect()

	return &MControlResponse{
		Success: true,
		Message: "disconnected",
		State:   s.Controller.State(),
	}, nil
}

// -----------------------------------------------------------------------------

// SetParameters updates the subscription parameters and persists them so they
// survive a restart.
func (s *ControlService) SetParameters(ctx context.Context, req *MParametersRequest) (*MControlResponse, error) {
	if req.Filter == "" || req.SortKey == "" {
		return nil, status.Error(codes.InvalidArgument, "filter and sort_key are required")
	}

	params := models.MSubscriptionParams{Filter: req.Filter, SortKey: req.SortKey}

	if err := s.Controller.SetParameters(params); err != nil {
		var validationErr *helpers.ValidationError
		if errors.As(err, &validationErr) {
			return nil, status.Error(codes.InvalidArgument, validationErr.Message)
		}
		return &MControlResponse{
			Success: false,
			Message: err.Error(),
			State:   s.Controller.State(),
		}, nil
	}

	// Persist only when wired with a config path. The writer side of the
	// config watcher picks the change up as a no-op since the controller
	// already carries these parameters.
	if s.Config != nil && s.ConfigPath != "" {
		s.Config.Subscription.Filter = params.Filter
		s.Config.Subscription.SortKey = params.SortKey
		if err := s.Config.Save(s.ConfigPath); err != nil {
			s.Logger.Warning("gRPC: failed to persist parameters: %v", err)
		}
	}

	s.Logger.Info("gRPC: SetParameters success. Filter: %s, SortKey: %s", params.Filter, params.SortKey)
	return &MControlResponse{
		Success: true,
		Message: fmt.Sprintf("parameters set to %s/%s", params.Filter, params.SortKey),
		State:   s.Controller.State(),
	}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetState(ctx context.Context, req *MControlRequest) (*MStateResponse, error) {
	snap := s.Controller.Snapshot()

	return &MStateResponse{
		State:       snap.State,
		Params:      snap.Params,
		Instruments: len(snap.Instruments),
		Summary:     snap.Summary,
		Stats:       snap.Stats,
	}, nil
}
