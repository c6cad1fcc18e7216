package graph

import (
	"context"
	"fmt"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	"github.com/teemow/graphcal/internal/identity"
	"github.com/teemow/graphcal/internal/logging"
)

// Recorder receives Graph operation and token acquisition measurements.
// *instrumentation.Metrics satisfies it.
type Recorder interface {
	RecordGraphOperation(ctx context.Context, operation, status string, duration time.Duration)
	RecordTokenAcquisition(ctx context.Context, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordGraphOperation(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordTokenAcquisition(context.Context, string)                      {}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithClock overrides the time source used for subscription expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs Graph operations with a fixed configuration. It holds no
// per-user state and is safe for concurrent use.
type Service struct {
	config   Config
	logger   logging.Logger
	recorder Recorder
	now      func() time.Time
}

// NewService creates a Service. Zero fields of cfg take their defaults.
func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{
		config:   cfg.withDefaults(),
		logger:   logging.Discard(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.config
}

// GetClient returns a new Graph client that authenticates every request as
// userID through idc. It fails with *InvalidStateError, without touching the
// network, when either input is missing.
func (s *Service) GetClient(idc identity.Client, userID string) (*msgraphsdk.GraphServiceClient, error) {
	if idc == nil || userID == "" {
		err := &InvalidStateError{ClientPresent: idc != nil, UserPresent: userID != ""}
		s.logger.Error("cannot create graph client", logging.Err(err))
		return nil, err
	}

	auth := &authProvider{
		identity:    idc,
		userID:      userID,
		scopes:      s.config.Scopes,
		redirectURI: s.config.RedirectURI,
		timeout:     s.config.TokenTimeout,
		logger:      s.logger,
		recorder:    s.recorder,
	}

	adapter, err := msgraphsdk.NewGraphRequestAdapter(auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph request adapter: %w", err)
	}
	adapter.SetBaseUrl(s.config.BaseURL)

	return msgraphsdk.NewGraphServiceClient(adapter), nil
}
