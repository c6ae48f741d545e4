package bridge

import (
	"context"
	"sync"

	"github.com/angelmondragon/storebridge/internal/storekit"
	pkgerrors "github.com/angelmondragon/storebridge/pkg/errors"
	"github.com/angelmondragon/storebridge/pkg/logger"
	"github.com/angelmondragon/storebridge/pkg/metrics"
)

// Method names accepted by Dispatch, and the one event the bridge emits.
const (
	MethodGetProducts            = "getProducts"
	MethodPurchase               = "purchase"
	MethodRestore                = "restore"
	MethodGetCurrentEntitlements = "getCurrentEntitlements"
	MethodGetSubscriptionStatus  = "getSubscriptionStatus"

	EventTransactionUpdate = "onTransactionUpdate"
)

// EventSink receives unsolicited transaction updates. Implementations own
// their sequencing context (the channel session write pump) and must not
// block the listener.
type EventSink interface {
	PushTransactionUpdate(record map[string]any)
}

// Params groups the bridge dependencies.
type Params struct {
	Store   storekit.Store
	Sink    EventSink
	Logger  *logger.Logger
	Metrics *metrics.BridgeMetrics
}

// Bridge translates between the host application's method channel and the
// store backend. It owns exactly one background listener on the store's
// transaction update feed, started at construction and cancelled at Close.
type Bridge struct {
	store   storekit.Store
	sink    EventSink
	logg    *logger.Logger
	metrics *metrics.BridgeMetrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New wires a bridge and unconditionally starts its update listener.
func New(params Params) (*Bridge, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnknown, "store backend is required")
	}
	if params.Sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnknown, "event sink is required")
	}
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{ServiceName: "bridge"})
	}

	b := &Bridge{
		store:   params.Store,
		sink:    params.Sink,
		logg:    params.Logger,
		metrics: params.Metrics,
		done:    make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.listen(ctx)

	return b, nil
}

// Close cancels the update listener and waits for the in-flight element,
// if any, to finish dispatching. The bridge is not restartable.
func (b *Bridge) Close() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-b.done
}

// listen is the sole consumer of the store's update feed. It runs from
// construction until Close and survives individual bad elements.
func (b *Bridge) listen(ctx context.Context) {
	defer close(b.done)

	updates := b.store.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, result)
		}
	}
}

func (b *Bridge) handleUpdate(ctx context.Context, result storekit.VerificationResult[storekit.Transaction]) {
	tx, signed, err := result.Unwrap()
	if err != nil {
		b.logg.Warn(ctx, "transaction update failed verification, skipping")
		b.metrics.IncUpdateSkipped()
		return
	}

	lctx := b.logg.WithTransactionID(ctx, tx.ID)
	if err := b.store.Finish(lctx, tx.ID); err != nil {
		b.logg.Warn(b.logg.WithField(lctx, "error", err.Error()), "failed to acknowledge updated transaction")
	}

	b.sink.PushTransactionUpdate(storekit.NormalizeSignedTransaction(tx, signed))
	b.metrics.IncUpdateForwarded()
	b.logg.Debug(lctx, "transaction update forwarded")
}
