package kafka

import (
	"encoding/json"
	"fmt"

	"merchant-dashboard/internal/config"
	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"

	"github.com/IBM/sarama"
)

// Producer публикует доменные события в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронный producer
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("Successfully connected to Kafka producer")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// publishEvent сериализует событие и отправляет его в топик
func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"type":      event.Type,
	}).Debug("Event published")

	return nil
}

// PublishOrdersImported публикует событие об импорте журнала заказов
func (p *Producer) PublishOrdersImported(count int, totalSales float64) error {
	event := models.NewEvent(models.EventTypeOrdersImported, map[string]interface{}{
		"count":       count,
		"total_sales": totalSales,
	})
	return p.publishEvent(p.topics.Imports, event)
}

// PublishInventoryItemCreated публикует событие о создании позиции инвентаря
func (p *Producer) PublishInventoryItemCreated(item *models.InventoryItem) error {
	event := models.NewEvent(models.EventTypeInventoryItemCreated, map[string]interface{}{
		"item_id": item.ID,
		"name":    item.Name,
		"status":  string(item.Status),
	})
	return p.publishEvent(p.topics.Inventory, event)
}

// PublishInventoryItemUpdated публикует событие об изменении позиции инвентаря
func (p *Producer) PublishInventoryItemUpdated(item *models.InventoryItem) error {
	event := models.NewEvent(models.EventTypeInventoryItemUpdated, map[string]interface{}{
		"item_id": item.ID,
		"name":    item.Name,
		"status":  string(item.Status),
	})
	return p.publishEvent(p.topics.Inventory, event)
}

// PublishInventoryItemDeleted публикует событие об удалении позиции инвентаря
func (p *Producer) PublishInventoryItemDeleted(itemID int64) error {
	event := models.NewEvent(models.EventTypeInventoryItemDeleted, map[string]interface{}{
		"item_id": itemID,
	})
	return p.publishEvent(p.topics.Inventory, event)
}

// PublishReorderRequested публикует событие о зафиксированном дозаказе
func (p *Producer) PublishReorderRequested(order *models.PendingOrder) error {
	event := models.NewEvent(models.EventTypeReorderRequested, map[string]interface{}{
		"order_id":  order.ID.String(),
		"item_id":   order.ItemID,
		"item_name": order.ItemName,
		"quantity":  order.Quantity,
		"unit":      order.Unit,
	})
	return p.publishEvent(p.topics.Reorders, event)
}
