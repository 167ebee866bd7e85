// Package messaging publica los eventos de inventario y ventas ya confirmados.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
)

const publishTimeout = 5 * time.Second

// KafkaPublisher escribe cada evento como un mensaje JSON con clave sucursal:producto,
// de modo que los eventos de una misma clave de stock conservan su orden en la partición.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher crea el writer para el tópico indicado.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}}
}

// Publish envía los eventos en un solo lote.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...inventory.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := Messages(events...)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: escribir %d eventos: %w", len(msgs), err)
	}
	return nil
}

// Close vacía el buffer pendiente y cierra las conexiones.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Messages convierte eventos en mensajes de Kafka.
func Messages(events ...inventory.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("serializar evento %s: %w", ev.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.BranchID + ":" + ev.ProductID),
			Value: body,
			Time:  ev.At,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(ev.Type)},
			},
		})
	}
	return msgs, nil
}
