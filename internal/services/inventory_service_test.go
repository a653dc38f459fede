package services

import (
	"context"
	"testing"
	"time"

	"merchant-dashboard/internal/apperror"
	"merchant-dashboard/internal/config"
	"merchant-dashboard/internal/models"
	"merchant-dashboard/internal/redis"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestInventoryService(t *testing.T) (*InventoryService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb, err := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()}, newTestLogger())
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}

	return NewInventoryService(rdb, newTestLogger(), nil), mr
}

func TestInventoryService_Initialize_SeedsEmptyStore(t *testing.T) {
	service, mr := newTestInventoryService(t)

	if err := service.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	items, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected default seed of 5 items, got %d", len(items))
	}

	// производные поля выводятся при засеве
	byName := make(map[string]models.InventoryItem, len(items))
	for _, item := range items {
		byName[item.Name] = item
	}
	if byName["Coffee Beans"].Status != models.StockAdequate {
		t.Fatalf("expected adequate coffee beans, got %s", byName["Coffee Beans"].Status)
	}
	if byName["Milk"].Status != models.StockLow {
		t.Fatalf("expected low milk, got %s", byName["Milk"].Status)
	}
	if byName["Paper Cups"].Status != models.StockCritical {
		t.Fatalf("expected critical paper cups, got %s", byName["Paper Cups"].Status)
	}
	if byName["Milk"].UsageRate != "6/day" {
		t.Fatalf("expected normalized usage rate, got %s", byName["Milk"].UsageRate)
	}

	if !mr.Exists("inventory:items") {
		t.Fatal("expected seeded inventory persisted to storage slot")
	}
}

func TestInventoryService_Initialize_CustomSeed(t *testing.T) {
	service, _ := newTestInventoryService(t)

	seed := []models.InventoryItem{
		{ID: 7, Name: "Beans", Unit: "kg", CurrentStock: 3, MinStock: 10, UsageRate: "1/day/day"},
	}
	if err := service.Initialize(context.Background(), seed); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	items, _ := service.List(context.Background())
	if len(items) != 1 || items[0].Status != models.StockCritical || items[0].UsageRate != "1/day" {
		t.Fatalf("unexpected seeded item: %+v", items)
	}
}

func TestInventoryService_Initialize_LoadsExistingEnvelope(t *testing.T) {
	service, _ := newTestInventoryService(t)

	stored := inventoryEnvelope{
		Version: inventorySchemaVersion,
		Items: []models.InventoryItem{
			{ID: 42, Name: "Tea", Unit: "boxes", CurrentStock: 50, MinStock: 10},
		},
	}
	if err := service.redis.Set(context.Background(), "inventory:items", stored, 0); err != nil {
		t.Fatalf("failed to preload storage: %v", err)
	}

	if err := service.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	items, _ := service.List(context.Background())
	if len(items) != 1 || items[0].ID != 42 || items[0].Status != models.StockAdequate {
		t.Fatalf("expected stored item with derived status, got %+v", items)
	}
}

func TestInventoryService_Initialize_AcceptsLegacyArray(t *testing.T) {
	service, _ := newTestInventoryService(t)

	legacy := []models.InventoryItem{
		{ID: 9, Name: "Cups", Unit: "pieces", CurrentStock: 100, MinStock: 500},
	}
	if err := service.redis.Set(context.Background(), "inventory:items", legacy, 0); err != nil {
		t.Fatalf("failed to preload legacy blob: %v", err)
	}

	if err := service.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	items, _ := service.List(context.Background())
	if len(items) != 1 || items[0].ID != 9 || items[0].Status != models.StockCritical {
		t.Fatalf("expected legacy item loaded, got %+v", items)
	}
}

func TestInventoryService_Initialize_ReseedsCorruptBlob(t *testing.T) {
	service, mr := newTestInventoryService(t)

	mr.Set("inventory:items", "{not json")

	if err := service.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	items, _ := service.List(context.Background())
	if len(items) != 5 {
		t.Fatalf("expected reseed on corrupt blob, got %d items", len(items))
	}
}

func TestInventoryService_RequiresInitialize(t *testing.T) {
	service, _ := newTestInventoryService(t)

	if _, err := service.List(context.Background()); !apperror.Is(err, apperror.KindUnavailable) {
		t.Fatalf("expected unavailable before initialize, got %v", err)
	}
	if _, err := service.Add(context.Background(), &models.CreateInventoryItemRequest{Name: "X", Unit: "kg"}); !apperror.Is(err, apperror.KindUnavailable) {
		t.Fatalf("expected unavailable before initialize, got %v", err)
	}
	if _, err := service.Reorder(context.Background(), 1, 1); !apperror.Is(err, apperror.KindUnavailable) {
		t.Fatalf("expected unavailable before initialize, got %v", err)
	}
}

func TestInventoryService_AddEditDelete(t *testing.T) {
	service, _ := newTestInventoryService(t)
	if err := service.Initialize(context.Background(), []models.InventoryItem{}); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	created, err := service.Add(context.Background(), &models.CreateInventoryItemRequest{
		Name:         "Oat Milk",
		Category:     "Dairy",
		Unit:         "liters",
		CurrentStock: 25,
		MinStock:     20,
		UsageRate:    "3",
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.Status != models.StockAdequate || created.UsageRate != "3/day" {
		t.Fatalf("unexpected derived fields: %+v", created)
	}

	// снижение запаса ниже критического порога переключает статус
	newStock := 5.0
	updated, err := service.Edit(context.Background(), created.ID, &models.UpdateInventoryItemRequest{CurrentStock: &newStock})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if updated.Status != models.StockCritical {
		t.Fatalf("expected critical after stock drop, got %s", updated.Status)
	}

	if err := service.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	items, _ := service.List(context.Background())
	if len(items) != 0 {
		t.Fatalf("expected empty inventory after delete, got %+v", items)
	}
}

func TestInventoryService_Get(t *testing.T) {
	service, _ := newTestInventoryService(t)
	seed := []models.InventoryItem{
		{ID: 11, Name: "Beans", Unit: "kg", CurrentStock: 40, MinStock: 15},
	}
	if err := service.Initialize(context.Background(), seed); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	item, err := service.Get(context.Background(), 11)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if item.Name != "Beans" || item.Status != models.StockAdequate {
		t.Fatalf("unexpected item: %+v", item)
	}

	if _, err := service.Get(context.Background(), 404); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInventoryService_Add_Validation(t *testing.T) {
	service, _ := newTestInventoryService(t)
	_ = service.Initialize(context.Background(), []models.InventoryItem{})

	cases := []struct {
		name string
		req  *models.CreateInventoryItemRequest
	}{
		{"missing name", &models.CreateInventoryItemRequest{Unit: "kg"}},
		{"missing unit", &models.CreateInventoryItemRequest{Name: "Beans"}},
		{"negative stock", &models.CreateInventoryItemRequest{Name: "Beans", Unit: "kg", CurrentStock: -1}},
		{"negative min stock", &models.CreateInventoryItemRequest{Name: "Beans", Unit: "kg", MinStock: -1}},
	}

	for _, tc := range cases {
		if _, err := service.Add(context.Background(), tc.req); !apperror.Is(err, apperror.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestInventoryService_EditDelete_NotFound(t *testing.T) {
	service, _ := newTestInventoryService(t)
	_ = service.Initialize(context.Background(), []models.InventoryItem{})

	name := "Ghost"
	if _, err := service.Edit(context.Background(), 12345, &models.UpdateInventoryItemRequest{Name: &name}); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found on edit, got %v", err)
	}
	if err := service.Delete(context.Background(), 12345); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
	if _, err := service.Reorder(context.Background(), 12345, 1); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found on reorder, got %v", err)
	}
}

func TestInventoryService_Reorder(t *testing.T) {
	service, mr := newTestInventoryService(t)

	seed := []models.InventoryItem{
		{ID: 1, Name: "Milk", Unit: "liters", CurrentStock: 18, MinStock: 20},
	}
	if err := service.Initialize(context.Background(), seed); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	fixedNow := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixedNow }

	if _, err := service.Reorder(context.Background(), 1, 0); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for multiplier 0, got %v", err)
	}

	order, err := service.Reorder(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	if order.Quantity != 15 {
		t.Fatalf("expected quantity 3*5=15 for liters, got %d", order.Quantity)
	}
	if order.Status != models.PendingOrderStatusPlaced {
		t.Fatalf("unexpected status: %s", order.Status)
	}
	if !order.OrderDate.Equal(fixedNow) || !order.ExpectedDelivery.Equal(fixedNow.AddDate(0, 0, 3)) {
		t.Fatalf("unexpected order dates: %+v", order)
	}

	// дозаказ не трогает фактический запас
	items, _ := service.List(context.Background())
	if items[0].CurrentStock != 18 {
		t.Fatalf("reorder must not mutate stock, got %v", items[0].CurrentStock)
	}

	pending, err := service.PendingOrders(context.Background())
	if err != nil || len(pending) != 1 || pending[0].ID != order.ID {
		t.Fatalf("unexpected pending orders: %+v err=%v", pending, err)
	}
	if !mr.Exists("inventory:pending_orders") {
		t.Fatal("expected pending orders persisted")
	}
}

func TestInventoryService_ReorderQuantityByUnit(t *testing.T) {
	service, _ := newTestInventoryService(t)

	seed := []models.InventoryItem{
		{ID: 1, Name: "Beans", Unit: "kg", CurrentStock: 5, MinStock: 5},
		{ID: 2, Name: "Cups", Unit: "pieces", CurrentStock: 5, MinStock: 5},
		{ID: 3, Name: "Syrup", Unit: "boxes", CurrentStock: 5, MinStock: 5},
		{ID: 4, Name: "Ice", Unit: "bags", CurrentStock: 5, MinStock: 5},
	}
	if err := service.Initialize(context.Background(), seed); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	want := map[int64]int{1: 5, 2: 100, 3: 2, 4: 1}
	for id, quantity := range want {
		order, err := service.Reorder(context.Background(), id, 1)
		if err != nil {
			t.Fatalf("reorder %d failed: %v", id, err)
		}
		if order.Quantity != quantity {
			t.Fatalf("item %d: expected quantity %d, got %d", id, quantity, order.Quantity)
		}
	}
}

func TestInventoryService_PendingOrdersSurviveRestart(t *testing.T) {
	service, mr := newTestInventoryService(t)
	_ = service.Initialize(context.Background(), nil)

	if _, err := service.Reorder(context.Background(), 2, 1); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	// новый экземпляр поверх того же хранилища видит зафиксированный дозаказ
	rdb, _ := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()}, newTestLogger())
	restarted := NewInventoryService(rdb, newTestLogger(), nil)
	if err := restarted.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("second initialize failed: %v", err)
	}

	pending, err := restarted.PendingOrders(context.Background())
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected pending order after restart, got %+v err=%v", pending, err)
	}
}

func TestInventoryService_IDsMonotonic(t *testing.T) {
	service, _ := newTestInventoryService(t)
	_ = service.Initialize(context.Background(), []models.InventoryItem{})

	fixed := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	first, err := service.Add(context.Background(), &models.CreateInventoryItemRequest{Name: "A", Unit: "kg"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	second, err := service.Add(context.Background(), &models.CreateInventoryItemRequest{Name: "B", Unit: "kg"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if first.ID != fixed.UnixMilli() {
		t.Fatalf("expected unix-milli id, got %d", first.ID)
	}
	if second.ID != first.ID+1 {
		t.Fatalf("expected collision bump, got %d after %d", second.ID, first.ID)
	}
}
