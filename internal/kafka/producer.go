package kafka

import (
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type SaramaProducer struct {
	producer sarama.SyncProducer
}

func NewSaramaProducer(brokers []string) (*SaramaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Timeout = 5 * time.Second
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return NewProducerFrom(prod), nil
}

func NewProducerFrom(p sarama.SyncProducer) *SaramaProducer {
	return &SaramaProducer{producer: p}
}

// Publish sends message keyed by key, so events of one order keep their order.
func (p *SaramaProducer) Publish(topic, key string, message []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(message),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		slog.Error("kafka publish failed", "topic", topic, "error", err)
		return err
	}
	slog.Debug("kafka message stored", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

func (p *SaramaProducer) Close() error {
	return p.producer.Close()
}
