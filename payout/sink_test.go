package payout

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(logger)

	req := royalty(1500)
	txid, err := sink.Pay(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, txid)

	out := buf.String()
	assert.Contains(t, out, "payout requested")
	assert.Contains(t, out, "amount=1500")
	assert.Contains(t, out, "to="+creatorAddr)
	assert.Contains(t, out, "id="+req.ID)
}

func TestMemSink(t *testing.T) {
	sink := NewMemSink()
	req := royalty(7)

	txid, err := sink.Pay(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "mem-"+req.ID, txid)

	got := sink.Requests()
	require.Len(t, got, 1)
	got[0].Reason = "mutated"
	assert.Equal(t, ReasonRoyalty, sink.Requests()[0].Reason)

	errDown := errors.New("down")
	sink.SetErr(errDown)
	_, err = sink.Pay(context.Background(), royalty(8))
	assert.ErrorIs(t, err, errDown)
	assert.Len(t, sink.Requests(), 2)
}

func TestMemSinkSetErrWhileDispatching(t *testing.T) {
	sink := NewMemSink()
	d, err := NewDispatcher(sink)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			sink.SetErr(errors.New("flaky"))
			sink.SetErr(nil)
		}
	}()
	for i := 0; i < 50; i++ {
		require.NoError(t, d.Submit(royalty(uint64(i+1))))
	}
	wg.Wait()
	closeDispatcher(t, d)
	assert.Len(t, sink.Requests(), 50)
}

func TestEstimateFee(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		feeRate uint64
		want    uint64
	}{
		{"default rate rounds up", 226, 0, 1},
		{"exact kilobyte", 1000, 1, 1},
		{"just over", 1001, 1, 2},
		{"higher rate", 226, 50, 12},
		{"zero size", 0, 10, 0},
		{"saturates", 226, math.MaxUint64, math.MaxUint64},
		{"saturates near max", 1, math.MaxUint64 - 500, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateFee(tt.size, tt.feeRate))
		})
	}
}

func TestEstimateTxSize(t *testing.T) {
	assert.Equal(t, 10+148+2*34, EstimateTxSize(1, 2))
	assert.Equal(t, 10, EstimateTxSize(0, 0))
}
