package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"dealradar/offers-service/internal/model"
)

// KafkaSender publishes offers as JSON to a topic; downstream consumers
// (site widgets, push services) render them. The channel config's Target
// is the topic name.
type KafkaSender struct {
	producer sarama.SyncProducer
}

// NewKafkaSender builds a synchronous producer so a send failure is
// observed immediately and the offer stays eligible for a later tick.
func NewKafkaSender(brokers []string) (*KafkaSender, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &KafkaSender{producer: producer}, nil
}

func (s *KafkaSender) Send(_ context.Context, offer model.Offer, ch model.ChannelConfig) error {
	payload, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("marshal offer %s: %w", offer.ID, err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: ch.Target,
		Key:   sarama.StringEncoder(offer.TenantID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("kafka send to %s: %w", ch.Target, err)
	}
	return nil
}

// Close releases the underlying producer.
func (s *KafkaSender) Close() error { return s.producer.Close() }
