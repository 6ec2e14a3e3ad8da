package lib

import (
	"context"
	"encoding/json"
	"fms/src/config"
	"log"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

const (
	TopicOrdersCreated         = "orders.created"
	TopicOrdersCancelled       = "orders.cancelled"
	TopicReservationsCreated   = "reservations.created"
	TopicReservationsCancelled = "reservations.cancelled"
	TopicPaymentsUpdated       = "payments.updated"
)

var Topics = []string{
	TopicOrdersCreated,
	TopicOrdersCancelled,
	TopicReservationsCreated,
	TopicReservationsCancelled,
	TopicPaymentsUpdated,
}

func GetKafkaProducerConfig(cfg config.KafkaConfig) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": cfg.Broker,
		"client.id":         cfg.ClientID,
		"acks":              "all",
	}
}

// KafkaPublisher emits domain events after their unit of work commits.
type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	log.Println("Initializing kafka Producer...")
	conf := GetKafkaProducerConfig(cfg)
	p, err := kafka.NewProducer(&conf)
	if err != nil {
		log.Printf("Error on producer: %s\n", err.Error())
		return nil, err
	}
	go func() {
		for e := range p.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				log.Printf("[Kafka] delivery to %s failed: %s\n", *m.TopicPartition.Topic, m.TopicPartition.Error.Error())
			}
		}
	}()
	return &KafkaPublisher{producer: p}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, nil)
}

func (k *KafkaPublisher) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
}

func KafkaCreateTopics(ctx context.Context, cfg config.KafkaConfig, topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Broker,
	})
	if err != nil {
		log.Printf("Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	defer a.Close()
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     10,
			ReplicationFactor: 1,
		})
	}
	result, err := a.CreateTopics(ctx, topicsDef)
	if err != nil {
		log.Printf("Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}
