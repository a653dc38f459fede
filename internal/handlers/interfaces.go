package handlers

import (
	"context"

	"merchant-dashboard/internal/models"
)

// ----- Analytics -----

type AnalyticsProvider interface {
	Aggregate(ctx context.Context, csvText string) (*models.ImportResult, error)
	LatestSummary(ctx context.Context) (*models.AggregateSummary, error)
}

// ----- Inventory -----

type InventoryProvider interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	Get(ctx context.Context, id int64) (*models.InventoryItem, error)
	Add(ctx context.Context, req *models.CreateInventoryItemRequest) (*models.InventoryItem, error)
	Edit(ctx context.Context, id int64, req *models.UpdateInventoryItemRequest) (*models.InventoryItem, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, id int64, multiplier int) (*models.PendingOrder, error)
	PendingOrders(ctx context.Context) ([]models.PendingOrder, error)
}

// ----- Archive -----

type OrderArchive interface {
	ImportOrders(ctx context.Context, records []models.OrderRecord) error
	ListOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error)
}

// ----- Events -----

type EventProducer interface {
	PublishOrdersImported(count int, totalSales float64) error
	PublishInventoryItemCreated(item *models.InventoryItem) error
	PublishInventoryItemUpdated(item *models.InventoryItem) error
	PublishInventoryItemDeleted(itemID int64) error
	PublishReorderRequested(order *models.PendingOrder) error
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
