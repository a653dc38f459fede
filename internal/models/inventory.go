package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StockStatus представляет статус запаса позиции инвентаря
type StockStatus string

const (
	StockAdequate StockStatus = "adequate"
	StockLow      StockStatus = "low"
	StockCritical StockStatus = "critical"
)

// criticalStockFactor — доля минимального запаса, ниже которой статус считается критическим.
const criticalStockFactor = 0.3

// usageRateSuffix — обязательный суффикс нормы расхода.
const usageRateSuffix = "/day"

// InventoryItem представляет позицию инвентаря.
// Status — производное поле: оно пересчитывается через Recalculate при каждом
// изменении запасов и никогда не задается вызывающей стороной напрямую.
type InventoryItem struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Category     string      `json:"category"`
	Unit         string      `json:"unit"`
	CurrentStock float64     `json:"current_stock"`
	MinStock     float64     `json:"min_stock"`
	UsageRate    string      `json:"usage_rate"`
	Status       StockStatus `json:"status"`
	LastDelivery time.Time   `json:"last_delivery"`
	NextDelivery time.Time   `json:"next_delivery"`
}

// Recalculate пересчитывает производные поля (статус и норму расхода).
func (i *InventoryItem) Recalculate() {
	i.Status = ClassifyStock(i.CurrentStock, i.MinStock)
	i.UsageRate = NormalizeUsageRate(i.UsageRate)
}

// ClassifyStock классифицирует уровень запаса.
// Обе границы включительные: пограничные значения дают более строгий статус.
func ClassifyStock(currentStock, minStock float64) StockStatus {
	switch {
	case currentStock <= minStock*criticalStockFactor:
		return StockCritical
	case currentStock <= minStock:
		return StockLow
	default:
		return StockAdequate
	}
}

// ReorderMultiplier возвращает базовый множитель дозаказа для единицы измерения.
// Неизвестные единицы получают множитель 1.
func ReorderMultiplier(unit string) int {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kg", "liters":
		return 5
	case "pieces", "packs":
		return 100
	case "boxes":
		return 2
	default:
		return 1
	}
}

// NormalizeUsageRate приводит норму расхода к виду "<число>/day".
// Суффикс "/day" встречается в результате ровно один раз.
func NormalizeUsageRate(raw string) string {
	value := strings.TrimSpace(raw)
	for strings.HasSuffix(value, usageRateSuffix) {
		value = strings.TrimSuffix(value, usageRateSuffix)
	}
	return value + usageRateSuffix
}

// PendingOrder представляет зафиксированное намерение дозаказа.
// Запись не изменяет фактический запас позиции.
type PendingOrder struct {
	ID               uuid.UUID `json:"id"`
	ItemID           int64     `json:"item_id"`
	ItemName         string    `json:"item_name"`
	Quantity         int       `json:"quantity"`
	Unit             string    `json:"unit"`
	OrderDate        time.Time `json:"order_date"`
	ExpectedDelivery time.Time `json:"expected_delivery"`
	Status           string    `json:"status"`
}

// PendingOrderStatusPlaced — единственный статус намерения дозаказа.
const PendingOrderStatusPlaced = "placed"

// CreateInventoryItemRequest представляет запрос на создание позиции инвентаря
type CreateInventoryItemRequest struct {
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Unit         string    `json:"unit"`
	CurrentStock float64   `json:"current_stock"`
	MinStock     float64   `json:"min_stock"`
	UsageRate    string    `json:"usage_rate"`
	LastDelivery time.Time `json:"last_delivery"`
	NextDelivery time.Time `json:"next_delivery"`
}

// UpdateInventoryItemRequest представляет частичное обновление позиции инвентаря
type UpdateInventoryItemRequest struct {
	Name         *string    `json:"name,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Unit         *string    `json:"unit,omitempty"`
	CurrentStock *float64   `json:"current_stock,omitempty"`
	MinStock     *float64   `json:"min_stock,omitempty"`
	UsageRate    *string    `json:"usage_rate,omitempty"`
	LastDelivery *time.Time `json:"last_delivery,omitempty"`
	NextDelivery *time.Time `json:"next_delivery,omitempty"`
}

// ReorderRequest представляет запрос на дозаказ позиции
type ReorderRequest struct {
	Multiplier int `json:"multiplier"`
}
