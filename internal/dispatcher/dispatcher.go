// Package dispatcher binds the signals topic to the execution engine.
package dispatcher

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tradepool/internal/bus"
)

// Handler routes decoded signals. Implemented by execution.Engine.
type Handler interface {
	HandleEntry(ctx context.Context, sig bus.Signal) error
	HandleExit(ctx context.Context, sig bus.Signal) error
}

// Consumer is the slice of bus.Consumer the loop needs.
type Consumer interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	Consumer Consumer
	Handler  Handler
	Logger   *zap.Logger
}

// Run consumes until ctx is cancelled. The offset is committed after
// every dispatch attempt, successful or not: a failing signal is logged
// with its full context and dropped, never redelivered by us. Transient
// handler failures are covered by handler-internal recovery (the
// protective-order sweep), not by replay.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		msg, err := d.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		d.dispatch(ctx, msg)
		if err := d.Consumer.Commit(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if d.Logger != nil {
				d.Logger.Error("offset commit failed",
					zap.String("topic", msg.Topic),
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg kafka.Message) {
	sig, err := bus.DecodeSignal(msg.Value)
	if err != nil {
		if d.Logger != nil {
			d.Logger.Warn("dropping invalid signal",
				zap.ByteString("key", msg.Key),
				zap.ByteString("payload", msg.Value),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		return
	}

	switch sig.Type {
	case bus.SignalEntry:
		err = d.Handler.HandleEntry(ctx, sig)
	case bus.SignalExit:
		err = d.Handler.HandleExit(ctx, sig)
	}
	if err != nil && d.Logger != nil {
		d.Logger.Error("signal handling failed",
			zap.String("strategy", sig.Strategy),
			zap.String("ticker", sig.Ticker),
			zap.String("type", sig.Type),
			zap.String("action", sig.Action),
			zap.String("quantity", sig.Quantity.String()),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	}
}
