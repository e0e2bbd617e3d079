// Package testutils provides testing utilities and helper functions
package testutils

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// DefaultTimeout bounds every blocking wait in tests
const DefaultTimeout = 5 * time.Second

// Gate is a one-shot latch used to hold a task inside a worker
type Gate struct {
	entered     chan struct{}
	release     chan struct{}
	enterOnce   sync.Once
	releaseOnce sync.Once
	passes      atomic.Int64
}

// NewGate creates a closed gate
func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// Pass marks the gate as entered and blocks until Open is called
func (g *Gate) Pass() {
	g.passes.Add(1)
	g.enterOnce.Do(func() { close(g.entered) })
	<-g.release
}

// Entered is closed once some goroutine has reached Pass
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// WaitEntered blocks until Pass has been reached or the timeout expires
func (g *Gate) WaitEntered(timeout time.Duration) bool {
	select {
	case <-g.entered:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Open releases every current and future caller of Pass
func (g *Gate) Open() {
	g.releaseOnce.Do(func() { close(g.release) })
}

// Passes returns how many times Pass was called
func (g *Gate) Passes() int64 {
	return g.passes.Load()
}

// NewObservedLogger returns a logger whose entries at or above level are recorded
func NewObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}
