package kafka

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/tsel-ticketmaster/tm-gate/config"
)

// NewProducer builds a confluent kafka producer from the application
// config. Producer failures at construction time are fatal.
func NewProducer() *kafka.Producer {
	c := config.Get()

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": c.Kafka.BootstrapServers,
		"acks":              "all",
	})
	if err != nil {
		panic(err)
	}

	return p
}
