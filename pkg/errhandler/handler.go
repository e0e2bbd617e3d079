// Package errhandler provides error handling strategies for pool failures
package errhandler

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// Strategy defines error handling strategy types
type Strategy int

const (
	// FailFastStrategy returns every error to the pool
	FailFastStrategy Strategy = iota
	// ContinueOnErrorStrategy records errors and lets the pool continue
	ContinueOnErrorStrategy
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case FailFastStrategy:
		return "FailFast"
	case ContinueOnErrorStrategy:
		return "ContinueOnError"
	default:
		return "Unknown"
	}
}

// FailFast returns a handler that hands every error back unhandled
func FailFast() types.ErrorHandler {
	return func(err error) error {
		return err
	}
}

// ContinueOnErrorConfig contains configuration for continue-on-error handler
type ContinueOnErrorConfig struct {
	// IgnoredErrors lists the errors to absorb, matched with errors.Is.
	// An empty list absorbs every error.
	IgnoredErrors []error

	// MaxRecorded caps how many absorbed errors are kept (0 keeps none)
	MaxRecorded int

	// Logger for absorbed errors (optional, defaults to zap.L())
	Logger *zap.Logger
}

// ContinueOnErrorHandler absorbs errors so the pool carries on
type ContinueOnErrorHandler struct {
	ignored     []error
	maxRecorded int
	recorded    []error
	handled     atomic.Int64
	logger      *zap.SugaredLogger
	mu          sync.RWMutex
}

// NewContinueOnErrorHandler creates a continue-on-error handler
func NewContinueOnErrorHandler(config *ContinueOnErrorConfig) *ContinueOnErrorHandler {
	if config == nil {
		config = &ContinueOnErrorConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.L()
	}

	h := &ContinueOnErrorHandler{
		maxRecorded: config.MaxRecorded,
		logger:      logger.Sugar().Named("errhandler"),
	}
	for _, err := range config.IgnoredErrors {
		if err != nil {
			h.ignored = append(h.ignored, err)
		}
	}
	return h
}

// Handle absorbs err if it can, otherwise returns it unchanged.
// Its signature matches types.ErrorHandler.
func (h *ContinueOnErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	if !h.CanHandle(err) {
		return err
	}

	h.handled.Add(1)
	h.logger.Warnw("ignored error", "error", err)

	h.mu.Lock()
	if len(h.recorded) < h.maxRecorded {
		h.recorded = append(h.recorded, err)
	}
	h.mu.Unlock()
	return nil
}

// CanHandle checks if err would be absorbed
func (h *ContinueOnErrorHandler) CanHandle(err error) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.ignored) == 0 {
		return true
	}
	for _, target := range h.ignored {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// AddIgnoredError adds an error to absorb
func (h *ContinueOnErrorHandler) AddIgnoredError(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ignored = append(h.ignored, err)
}

// RemoveIgnoredError removes an error from the ignore list
func (h *ContinueOnErrorHandler) RemoveIgnoredError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.ignored[:0]
	for _, target := range h.ignored {
		if !errors.Is(target, err) {
			kept = append(kept, target)
		}
	}
	h.ignored = kept
}

// Handled returns how many errors were absorbed
func (h *ContinueOnErrorHandler) Handled() int64 {
	return h.handled.Load()
}

// Recorded returns a copy of the absorbed errors kept so far
func (h *ContinueOnErrorHandler) Recorded() []error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]error(nil), h.recorded...)
}

// Chain tries each handler in order until one absorbs the error. The error
// returned by the last handler is returned if none does.
func Chain(handlers ...types.ErrorHandler) types.ErrorHandler {
	return func(err error) error {
		for _, handler := range handlers {
			if handler == nil {
				continue
			}
			if err = handler(err); err == nil {
				return nil
			}
		}
		return err
	}
}
