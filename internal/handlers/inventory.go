package handlers

import (
	"encoding/json"
	"net/http"

	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"
)

// inventoryItemPrefix — префикс маршрутов отдельной позиции инвентаря.
const inventoryItemPrefix = "/api/inventory/"

// InventoryHandler обрабатывает эндпоинты инвентаря.
type InventoryHandler struct {
	service  InventoryProvider
	producer EventProducer
	log      *logger.Logger
}

// NewInventoryHandler создает новый обработчик инвентаря.
func NewInventoryHandler(service InventoryProvider, producer EventProducer, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:  service,
		producer: producer,
		log:      log,
	}
}

// List возвращает все позиции инвентаря
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list inventory")
		return
	}

	writeJSONResponse(w, http.StatusOK, items)
}

// Get возвращает позицию инвентаря по id
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := extractIDFromPath(r.URL.Path, inventoryItemPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get inventory item")
		return
	}

	writeJSONResponse(w, http.StatusOK, item)
}

// Create добавляет позицию инвентаря
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.service.Add(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create inventory item")
		return
	}

	h.publish(func() error { return h.producer.PublishInventoryItemCreated(item) }, "item created event")

	writeJSONResponse(w, http.StatusCreated, item)
}

// Update применяет частичное обновление позиции
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := extractIDFromPath(r.URL.Path, inventoryItemPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.service.Edit(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update inventory item")
		return
	}

	h.publish(func() error { return h.producer.PublishInventoryItemUpdated(item) }, "item updated event")

	writeJSONResponse(w, http.StatusOK, item)
}

// Delete удаляет позицию
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := extractIDFromPath(r.URL.Path, inventoryItemPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete inventory item")
		return
	}

	h.publish(func() error { return h.producer.PublishInventoryItemDeleted(id) }, "item deleted event")

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Reorder фиксирует намерение дозаказа позиции
func (h *InventoryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	id, err := extractIDFromPath(r.URL.Path, inventoryItemPrefix)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// Тело опционально: без него используется множитель 1
	req := models.ReorderRequest{Multiplier: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	order, err := h.service.Reorder(r.Context(), id, req.Multiplier)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to reorder inventory item")
		return
	}

	h.publish(func() error { return h.producer.PublishReorderRequested(order) }, "reorder event")

	writeJSONResponse(w, http.StatusCreated, order)
}

// PendingOrders возвращает зафиксированные дозаказы
func (h *InventoryHandler) PendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.PendingOrders(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list pending orders")
		return
	}

	writeJSONResponse(w, http.StatusOK, orders)
}

func (h *InventoryHandler) publish(fn func() error, what string) {
	if h.producer == nil {
		return
	}
	if err := fn(); err != nil {
		h.log.WithError(err).Warn("Failed to publish " + what)
	}
}
