package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"merchant-dashboard/internal/apperror"
	"merchant-dashboard/internal/config"
	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"
	"merchant-dashboard/internal/redis"

	"github.com/google/uuid"
)

const (
	// inventorySchemaVersion — версия схемы сохраненного списка инвентаря.
	inventorySchemaVersion = 1

	defaultStorageKey       = "inventory:items"
	defaultPendingOrdersKey = "inventory:pending_orders"

	// reorderLeadDays — ожидаемый срок поставки дозаказа.
	reorderLeadDays = 3
)

// inventoryEnvelope оборачивает сохраненный список версией схемы.
type inventoryEnvelope struct {
	Version int                    `json:"version"`
	Items   []models.InventoryItem `json:"items"`
}

// InventoryService владеет каноническим списком инвентаря и синхронизирует
// его с единственным именованным слотом в Redis. Мутации сериализуются
// мьютексом: один writer, последняя запись целиком замещает слот.
type InventoryService struct {
	redis      *redis.Client
	log        *logger.Logger
	storageKey string
	pendingKey string
	now        func() time.Time

	mu          sync.Mutex
	items       []models.InventoryItem
	pending     []models.PendingOrder
	lastID      int64
	initialized bool
}

// NewInventoryService создает сервис инвентаря. До вызова Initialize
// все операции возвращают ошибку unavailable.
func NewInventoryService(redisClient *redis.Client, log *logger.Logger, cfg *config.InventoryConfig) *InventoryService {
	storageKey := defaultStorageKey
	pendingKey := defaultPendingOrdersKey
	if cfg != nil {
		if cfg.StorageKey != "" {
			storageKey = cfg.StorageKey
		}
		if cfg.PendingOrdersKey != "" {
			pendingKey = cfg.PendingOrdersKey
		}
	}

	return &InventoryService{
		redis:      redisClient,
		log:        log,
		storageKey: storageKey,
		pendingKey: pendingKey,
		now:        time.Now,
	}
}

// Initialize загружает сохраненный список или засевает хранилище.
// Засев происходит только здесь: чтение после инициализации никогда не пишет.
// При отсутствующем или битом слоте используется seed (или встроенный набор).
func (s *InventoryService) Initialize(ctx context.Context, seed []models.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadItems(ctx)
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			s.log.WithError(err).Warn("Inventory blob is corrupt, reseeding")
		}

		items = seed
		if items == nil {
			items = defaultInventorySeed()
		}
		for i := range items {
			items[i].Recalculate()
		}
		s.items = items
		s.initialized = true
		s.persistItemsLocked(ctx)
		s.log.WithField("count", len(items)).Info("Inventory seeded")
	} else {
		for i := range items {
			items[i].Recalculate()
		}
		s.items = items
		s.initialized = true
		s.log.WithField("count", len(items)).Info("Inventory loaded")
	}

	for _, item := range s.items {
		if item.ID > s.lastID {
			s.lastID = item.ID
		}
	}

	// Зафиксированные намерения дозаказа: отсутствие слота — не ошибка.
	var pending []models.PendingOrder
	if err := s.redis.Get(ctx, s.pendingKey, &pending); err == nil {
		s.pending = pending
	}

	return nil
}

// loadItems читает сохраненный список, принимая и версионированный конверт,
// и исторический «голый» массив (версия 0).
func (s *InventoryService) loadItems(ctx context.Context) ([]models.InventoryItem, error) {
	var envelope inventoryEnvelope
	err := s.redis.Get(ctx, s.storageKey, &envelope)
	if err == nil {
		return envelope.Items, nil
	}
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, err
	}

	var legacy []models.InventoryItem
	if legacyErr := s.redis.Get(ctx, s.storageKey, &legacy); legacyErr == nil {
		s.log.Info("Loaded legacy inventory blob without schema version")
		return legacy, nil
	}

	return nil, err
}

// List возвращает снимок текущего списка инвентаря.
func (s *InventoryService) List(ctx context.Context) ([]models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, apperror.Unavailable("inventory store is not initialized", nil)
	}

	items := make([]models.InventoryItem, len(s.items))
	copy(items, s.items)
	return items, nil
}

// Get возвращает позицию по id.
func (s *InventoryService) Get(ctx context.Context, id int64) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, apperror.Unavailable("inventory store is not initialized", nil)
	}

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, apperror.NotFound("inventory item not found", nil)
	}

	item := s.items[idx]
	return &item, nil
}

// Add создает позицию инвентаря: назначает id, выводит статус, нормализует
// норму расхода и сохраняет полный список.
func (s *InventoryService) Add(ctx context.Context, req *models.CreateInventoryItemRequest) (*models.InventoryItem, error) {
	if err := validateItemFields(req.Name, req.Unit, req.CurrentStock, req.MinStock); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, apperror.Unavailable("inventory store is not initialized", nil)
	}

	item := models.InventoryItem{
		ID:           s.nextIDLocked(),
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		UsageRate:    req.UsageRate,
		LastDelivery: req.LastDelivery,
		NextDelivery: req.NextDelivery,
	}
	item.Recalculate()

	s.items = append(s.items, item)
	s.persistItemsLocked(ctx)

	s.log.WithFields(map[string]interface{}{
		"item_id": item.ID,
		"name":    item.Name,
		"status":  item.Status,
	}).Info("Inventory item created")

	return &item, nil
}

// Edit применяет частичное обновление и пересчитывает производные поля.
func (s *InventoryService) Edit(ctx context.Context, id int64, req *models.UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, apperror.Unavailable("inventory store is not initialized", nil)
	}

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, apperror.NotFound("inventory item not found", nil)
	}

	item := &s.items[idx]
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.CurrentStock != nil {
		item.CurrentStock = *req.CurrentStock
	}
	if req.MinStock != nil {
		item.MinStock = *req.MinStock
	}
	if req.UsageRate != nil {
		item.UsageRate = *req.UsageRate
	}
	if req.LastDelivery != nil {
		item.LastDelivery = *req.LastDelivery
	}
	if req.NextDelivery != nil {
		item.NextDelivery = *req.NextDelivery
	}

	if err := validateItemFields(item.Name, item.Unit, item.CurrentStock, item.MinStock); err != nil {
		return nil, err
	}

	item.Recalculate()
	s.persistItemsLocked(ctx)

	s.log.WithFields(map[string]interface{}{
		"item_id": item.ID,
		"status":  item.Status,
	}).Info("Inventory item updated")

	updated := *item
	return &updated, nil
}

// Delete удаляет позицию по id.
func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return apperror.Unavailable("inventory store is not initialized", nil)
	}

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return apperror.NotFound("inventory item not found", nil)
	}

	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.persistItemsLocked(ctx)

	s.log.WithField("item_id", id).Info("Inventory item deleted")
	return nil
}

// Reorder фиксирует намерение дозаказа. Фактический запас позиции не меняется:
// пополнение произойдет вне системы, запись хранит только количество и сроки.
func (s *InventoryService) Reorder(ctx context.Context, id int64, multiplier int) (*models.PendingOrder, error) {
	if multiplier < 1 {
		return nil, apperror.Validation("reorder multiplier must be at least 1", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, apperror.Unavailable("inventory store is not initialized", nil)
	}

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, apperror.NotFound("inventory item not found", nil)
	}

	item := s.items[idx]
	now := s.now().UTC()
	order := models.PendingOrder{
		ID:               uuid.New(),
		ItemID:           item.ID,
		ItemName:         item.Name,
		Quantity:         multiplier * models.ReorderMultiplier(item.Unit),
		Unit:             item.Unit,
		OrderDate:        now,
		ExpectedDelivery: now.AddDate(0, 0, reorderLeadDays),
		Status:           models.PendingOrderStatusPlaced,
	}

	s.pending = append(s.pending, order)
	s.persistPendingLocked(ctx)

	s.log.WithFields(map[string]interface{}{
		"item_id":  item.ID,
		"quantity": order.Quantity,
		"unit":     order.Unit,
	}).Info("Reorder recorded")

	return &order, nil
}

// PendingOrders возвращает снимок зафиксированных дозаказов.
func (s *InventoryService) PendingOrders(ctx context.Context) ([]models.PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, apperror.Unavailable("inventory store is not initialized", nil)
	}

	orders := make([]models.PendingOrder, len(s.pending))
	copy(orders, s.pending)
	return orders, nil
}

// persistItemsLocked сохраняет полный список. Ошибка записи логируется,
// но не прерывает операцию: память остается источником истины.
func (s *InventoryService) persistItemsLocked(ctx context.Context) {
	envelope := inventoryEnvelope{Version: inventorySchemaVersion, Items: s.items}
	if err := s.redis.Set(ctx, s.storageKey, envelope, 0); err != nil {
		s.log.WithError(err).WithField("key", s.storageKey).Warn("Failed to persist inventory")
	}
}

func (s *InventoryService) persistPendingLocked(ctx context.Context) {
	if err := s.redis.Set(ctx, s.pendingKey, s.pending, 0); err != nil {
		s.log.WithError(err).WithField("key", s.pendingKey).Warn("Failed to persist pending orders")
	}
}

// nextIDLocked выдает уникальный возрастающий id на основе unix-времени в миллисекундах.
func (s *InventoryService) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *InventoryService) indexOfLocked(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func validateItemFields(name, unit string, currentStock, minStock float64) error {
	if name == "" {
		return apperror.Validation("item name is required", nil)
	}
	if unit == "" {
		return apperror.Validation("item unit is required", nil)
	}
	if currentStock < 0 || minStock < 0 {
		return apperror.Validation("stock levels must be non-negative", nil)
	}
	return nil
}

// defaultInventorySeed — встроенный стартовый набор для пустого хранилища.
func defaultInventorySeed() []models.InventoryItem {
	lastDelivery := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	nextDelivery := time.Date(2024, 1, 24, 0, 0, 0, 0, time.UTC)

	return []models.InventoryItem{
		{ID: 1, Name: "Coffee Beans", Category: "Beverages", Unit: "kg", CurrentStock: 40, MinStock: 15, UsageRate: "2.5", LastDelivery: lastDelivery, NextDelivery: nextDelivery},
		{ID: 2, Name: "Milk", Category: "Dairy", Unit: "liters", CurrentStock: 18, MinStock: 20, UsageRate: "6", LastDelivery: lastDelivery, NextDelivery: nextDelivery},
		{ID: 3, Name: "Paper Cups", Category: "Supplies", Unit: "pieces", CurrentStock: 150, MinStock: 500, UsageRate: "120", LastDelivery: lastDelivery, NextDelivery: nextDelivery},
		{ID: 4, Name: "Napkins", Category: "Supplies", Unit: "packs", CurrentStock: 30, MinStock: 10, UsageRate: "1", LastDelivery: lastDelivery, NextDelivery: nextDelivery},
		{ID: 5, Name: "Syrup Assortment", Category: "Beverages", Unit: "boxes", CurrentStock: 2, MinStock: 8, UsageRate: "0.5", LastDelivery: lastDelivery, NextDelivery: nextDelivery},
	}
}
