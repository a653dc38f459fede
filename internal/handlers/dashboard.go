package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"merchant-dashboard/internal/config"
	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"
)

const defaultMaxUploadBytes = 5 << 20

// DashboardHandler обрабатывает импорт журнала заказов и отдачу сводки.
type DashboardHandler struct {
	analytics AnalyticsProvider
	archive   OrderArchive
	producer  EventProducer
	log       *logger.Logger
	cfg       *config.AnalyticsConfig
}

// NewDashboardHandler создает новый обработчик дашборда.
func NewDashboardHandler(analytics AnalyticsProvider, archive OrderArchive, producer EventProducer, log *logger.Logger, cfg *config.AnalyticsConfig) *DashboardHandler {
	return &DashboardHandler{
		analytics: analytics,
		archive:   archive,
		producer:  producer,
		log:       log,
		cfg:       cfg,
	}
}

// ImportOrders принимает CSV журнала заказов в теле запроса и возвращает сводку.
// Архивация и публикация события выполняются по принципу best-effort:
// их ошибки не отменяют успешный расчет.
func (h *DashboardHandler) ImportOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	maxBytes := int64(defaultMaxUploadBytes)
	if h.cfg != nil && h.cfg.MaxUploadBytes > 0 {
		maxBytes = h.cfg.MaxUploadBytes
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		writeErrorResponse(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBytes))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout())
	defer cancel()

	result, err := h.analytics.Aggregate(ctx, string(body))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to aggregate order log")
		return
	}

	if h.archive != nil && len(result.Records) > 0 {
		if err := h.archive.ImportOrders(ctx, result.Records); err != nil {
			h.log.WithError(err).Warn("Failed to archive imported orders")
			result.ArchiveError = "orders were aggregated but not archived"
		}
	}

	if h.producer != nil {
		if err := h.producer.PublishOrdersImported(result.Summary.TotalOrders, result.Summary.TotalSales); err != nil {
			h.log.WithError(err).Warn("Failed to publish import event")
		}
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// Summary возвращает последнюю рассчитанную сводку с опциональным экспортом в CSV.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		writeErrorResponse(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout())
	defer cancel()

	summary, err := h.analytics.LatestSummary(ctx)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load dashboard summary")
		return
	}

	if format == "csv" {
		if err := writeSummaryCSV(w, summary); err != nil {
			h.log.WithError(err).Warn("Failed to stream summary CSV")
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, summary)
}

func (h *DashboardHandler) requestTimeout() time.Duration {
	if h.cfg != nil && h.cfg.RequestTimeoutSeconds > 0 {
		return time.Duration(h.cfg.RequestTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}

func writeSummaryCSV(w http.ResponseWriter, summary *models.AggregateSummary) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=summary.csv")
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"section", "name", "value", "extra"})
	_ = writer.Write([]string{"summary", "total_sales", fmt.Sprintf("%.2f", summary.TotalSales), ""})
	_ = writer.Write([]string{"summary", "total_orders", strconv.Itoa(summary.TotalOrders), ""})
	_ = writer.Write([]string{"summary", "average_order_value", fmt.Sprintf("%.2f", summary.AverageOrderValue), ""})
	_ = writer.Write([]string{"summary", "unique_customers", strconv.Itoa(summary.UniqueCustomers), ""})

	for _, item := range summary.TopSellingItems {
		_ = writer.Write([]string{"top_item", item.Name, strconv.Itoa(item.SalesCount), fmt.Sprintf("%.2f", item.Revenue)})
	}

	for _, day := range summary.OrderVolumeByDate {
		_ = writer.Write([]string{"volume", day.Date, strconv.Itoa(day.OrderCount), ""})
	}

	for _, bucket := range summary.PeakHours {
		if bucket.OrderCount == 0 {
			continue
		}
		_ = writer.Write([]string{"peak_hour", strconv.Itoa(bucket.Hour), strconv.Itoa(bucket.OrderCount), ""})
	}

	writer.Flush()
	return writer.Error()
}
