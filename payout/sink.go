package payout

import (
	"context"
	"log/slog"
	"sync"
)

// Sink performs the transfer described by a request and returns the id of
// the settling transaction, if any.
type Sink interface {
	Pay(ctx context.Context, req Request) (txid string, err error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, req Request) (string, error)

// Pay calls f.
func (f SinkFunc) Pay(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// LogSink records requests in the log without moving funds. It backs the
// "log" payout mode, where transfers are settled out of band.
type LogSink struct {
	logger *slog.Logger
}

// Compile-time interface check.
var _ Sink = (*LogSink)(nil)

// NewLogSink returns a LogSink writing to logger (slog.Default if nil).
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Pay logs the request.
func (s *LogSink) Pay(ctx context.Context, req Request) (string, error) {
	s.logger.InfoContext(ctx, "payout requested",
		"id", req.ID,
		"to", req.To.String(),
		"amount", req.Amount.String(),
		"reason", req.Reason,
	)
	return "", nil
}

// MemSink records every request it receives. An error set with SetErr is
// returned from Pay after recording.
type MemSink struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

// Compile-time interface check.
var _ Sink = (*MemSink)(nil)

// NewMemSink returns an empty MemSink.
func NewMemSink() *MemSink {
	return &MemSink{}
}

// Pay records req.
func (s *MemSink) Pay(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	return "mem-" + req.ID, nil
}

// Requests returns a copy of the recorded requests in arrival order.
func (s *MemSink) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// SetErr changes the error returned by subsequent Pay calls.
func (s *MemSink) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
