package dispatcher

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"

	"tradepool/internal/bus"
)

type fakeConsumer struct {
	msgs      []kafka.Message
	committed []kafka.Message
}

func (f *fakeConsumer) Fetch(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeConsumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

type recordingHandler struct {
	entries []bus.Signal
	exits   []bus.Signal
	err     error
}

func (h *recordingHandler) HandleEntry(_ context.Context, sig bus.Signal) error {
	h.entries = append(h.entries, sig)
	return h.err
}

func (h *recordingHandler) HandleExit(_ context.Context, sig bus.Signal) error {
	h.exits = append(h.exits, sig)
	return h.err
}

func msg(payload string) kafka.Message {
	return kafka.Message{Value: []byte(payload)}
}

func TestRun_RoutesByType(t *testing.T) {
	consumer := &fakeConsumer{msgs: []kafka.Message{
		msg(`{"strategy":"s","ticker":"X","quantity":"1","action":"BUY","type":"ENTRY","order_type":"MARKET"}`),
		msg(`{"strategy":"s","ticker":"X","quantity":"1","action":"SELL","type":"EXIT","position":"LONG","order_type":"MARKET"}`),
	}}
	handler := &recordingHandler{}
	d := &Dispatcher{Consumer: consumer, Handler: handler}

	if err := d.Run(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	if len(handler.entries) != 1 || len(handler.exits) != 1 {
		t.Fatalf("entries=%d exits=%d", len(handler.entries), len(handler.exits))
	}
	if len(consumer.committed) != 2 {
		t.Fatalf("committed=%d want 2", len(consumer.committed))
	}
}

func TestRun_CommitsInvalidAndFailedSignals(t *testing.T) {
	consumer := &fakeConsumer{msgs: []kafka.Message{
		msg(`not even json`),
		msg(`{"strategy":"s","ticker":"X","quantity":"1","action":"BUY","type":"ENTRY","order_type":"MARKET"}`),
	}}
	handler := &recordingHandler{err: errors.New("brokerage down")}
	d := &Dispatcher{Consumer: consumer, Handler: handler}

	if err := d.Run(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	if len(handler.entries) != 1 {
		t.Fatalf("entries=%d want 1 (invalid payload dropped before routing)", len(handler.entries))
	}
	if len(consumer.committed) != 2 {
		t.Fatalf("committed=%d want 2, offsets advance past bad signals", len(consumer.committed))
	}
}

func TestRun_StopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	consumer := &fakeConsumer{}
	d := &Dispatcher{Consumer: consumer, Handler: &recordingHandler{}}

	if err := d.Run(ctx); err != nil {
		t.Fatalf("err=%v want nil on cancelled context", err)
	}
}
