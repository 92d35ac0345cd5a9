package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	applog "fintrack/internal/shared/log"
)

type fakeDelivery struct {
	acked, nacked, requeued bool
}

func (d *fakeDelivery) Ack(multiple bool) error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(multiple, requeue bool) error {
	d.nacked = true
	d.requeued = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	valid := []byte(`{"userId":7,"asOf":"2024-05-01","timestamp":"2024-05-01T00:00:00Z"}`)

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       outcome
		wantAck    bool
		wantReq    bool
	}{
		{name: "success acks", body: valid, want: outcomeAcked, wantAck: true},
		{name: "handler failure requeues", body: valid, handlerErr: errors.New("db down"), want: outcomeRequeued, wantReq: true},
		{name: "malformed body is dropped", body: []byte(`nope`), want: outcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{logger: applog.Nop()}
			d := &fakeDelivery{}
			var got *MaterializeRequest

			out := c.handleDelivery(context.Background(), tt.body, d, func(ctx context.Context, msg *MaterializeRequest) error {
				got = msg
				return tt.handlerErr
			})

			if out != tt.want {
				t.Errorf("outcome = %v, want %v", out, tt.want)
			}
			if d.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", d.acked, tt.wantAck)
			}
			if d.nacked == tt.wantAck {
				t.Errorf("nacked = %v, want %v", d.nacked, !tt.wantAck)
			}
			if d.requeued != tt.wantReq {
				t.Errorf("requeued = %v, want %v", d.requeued, tt.wantReq)
			}
			if tt.want != outcomeRejected && (got == nil || got.UserID != 7) {
				t.Errorf("handler got %+v", got)
			}
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestRunConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dials := 0
	dial := func() (*Client, error) {
		dials++
		cancel()
		return nil, errors.New("connection refused")
	}

	done := make(chan error, 1)
	go func() { done <- RunConsumer(ctx, dial, nil, applog.Nop()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunConsumer() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunConsumer did not return after cancel")
	}
	if dials != 1 {
		t.Errorf("dials = %d, want 1", dials)
	}
}
