package relay

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storebridge/internal/bridge"
	"github.com/angelmondragon/storebridge/pkg/logger"
)

const publishTimeout = 10 * time.Second

// Publisher is the narrow publishing seam the relay depends on.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// TopicPublisher adapts a Pub/Sub v2 publisher handle, waiting for the
// server acknowledgement of each message.
type TopicPublisher struct {
	publisher *pubsub.Publisher
}

func NewTopicPublisher(publisher *pubsub.Publisher) *TopicPublisher {
	return &TopicPublisher{publisher: publisher}
}

func (t *TopicPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	result := t.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	_, err := result.Get(ctx)
	return err
}

// updateEnvelope is the published message body.
type updateEnvelope struct {
	Event       string         `json:"event"`
	EmittedAt   int64          `json:"emittedAt"`
	Transaction map[string]any `json:"transaction"`
}

// Relay fans transaction updates out to a downstream sink and a Pub/Sub
// topic. Publishing happens off the caller's goroutine so the update
// listener never blocks on broker round-trips.
type Relay struct {
	next      bridge.EventSink
	publisher Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// New wires a relay in front of next. next may be nil when the broker is
// the only consumer.
func New(next bridge.EventSink, publisher Publisher, logg *logger.Logger) *Relay {
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "relay"})
	}
	return &Relay{
		next:      next,
		publisher: publisher,
		logg:      logg,
		now:       time.Now,
	}
}

// PushTransactionUpdate implements bridge.EventSink.
func (r *Relay) PushTransactionUpdate(record map[string]any) {
	if r.next != nil {
		r.next.PushTransactionUpdate(record)
	}
	go r.publish(record)
}

func (r *Relay) publish(record map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	payload, err := json.Marshal(updateEnvelope{
		Event:       bridge.EventTransactionUpdate,
		EmittedAt:   r.now().UnixMilli(),
		Transaction: record,
	})
	if err != nil {
		r.logg.Error(ctx, "failed to encode transaction update", err)
		return
	}

	if err := r.publisher.Publish(ctx, payload, attributes(record)); err != nil {
		r.logg.Error(ctx, "failed to publish transaction update", err)
		return
	}
	r.logg.Debug(ctx, "transaction update published")
}

func attributes(record map[string]any) map[string]string {
	attrs := map[string]string{"event": bridge.EventTransactionUpdate}
	if productID, ok := record["productId"].(string); ok {
		attrs["productId"] = productID
	}
	if id, ok := record["id"].(uint64); ok {
		attrs["transactionId"] = strconv.FormatUint(id, 10)
	}
	return attrs
}
