package handlers

import (
	"net/http"

	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"
)

const (
	defaultOrdersLimit = 50
	maxOrdersLimit     = 500
)

// OrdersHandler отдает архив импортированных заказов.
type OrdersHandler struct {
	archive OrderArchive
	log     *logger.Logger
}

// NewOrdersHandler создает новый обработчик архива заказов.
func NewOrdersHandler(archive OrderArchive, log *logger.Logger) *OrdersHandler {
	return &OrdersHandler{archive: archive, log: log}
}

// List возвращает архивные заказы с пагинацией
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()
	limit := parseIntWithDefault(query.Get("limit"), defaultOrdersLimit)
	if limit > maxOrdersLimit {
		limit = maxOrdersLimit
	}

	offset := 0
	if raw := query.Get("offset"); raw != "" {
		offset = parseIntWithDefault(raw, 0)
	}

	records, err := h.archive.ListOrders(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list archived orders")
		return
	}

	if records == nil {
		records = []models.OrderRecord{}
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"orders": records,
		"limit":  limit,
		"offset": offset,
	})
}
