package watcher

import (
	"context"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// ReloadTopic is the Kafka topic a fleet of daemons listens on to trigger a
// reload of a named connector without a filesystem event.
const ReloadTopic = "connector.reload"

// KafkaSignal consumes ReloadTopic and feeds matching service names into
// the same debounce-set/loader-channel path the filesystem watcher uses,
// so the load goroutine stays unaware of the signal's origin. Disabled by
// default; wire it in only when the daemon config enables distributed
// reload.
type KafkaSignal struct {
	group  sarama.ConsumerGroup
	logger *zap.Logger
}

// NewKafkaSignal connects a consumer group over brokers.
func NewKafkaSignal(brokers []string, groupID string, logger *zap.Logger) (*KafkaSignal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaSignal{group: group, logger: logger}, nil
}

// Run consumes ReloadTopic until ctx is canceled, forwarding each
// message's value (a connector name) onto fileCh as a single-element
// batch.
func (k *KafkaSignal) Run(ctx context.Context, fileCh chan<- []string) {
	handler := &reloadHandler{fileCh: fileCh}
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := k.group.Consume(ctx, []string{ReloadTopic}, handler); err != nil {
				k.logger.Warn("kafka reload consumer error", zap.Error(err))
			}
		}
	}
}

// Close releases the consumer group.
func (k *KafkaSignal) Close() error {
	return k.group.Close()
}

type reloadHandler struct {
	fileCh chan<- []string
	once   sync.Once
	ready  chan struct{}
}

func (h *reloadHandler) Setup(sarama.ConsumerGroupSession) error {
	h.once.Do(func() { h.ready = make(chan struct{}); close(h.ready) })
	return nil
}

func (h *reloadHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *reloadHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		name := string(message.Value)
		if name != "" {
			h.fileCh <- []string{name}
		}
		session.MarkMessage(message, "")
	}
	return nil
}
