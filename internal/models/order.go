package models

import (
	"time"
)

// DateKeyLayout задает формат ключа даты в агрегатах (YYYY-MM-DD).
const DateKeyLayout = "2006-01-02"

// OrderRecord представляет одну нормализованную строку журнала заказов.
// Производные поля (HourOfDay, DateKey) выставляются только через NewOrderRecord,
// чтобы они не могли разойтись с Timestamp.
type OrderRecord struct {
	ID          string    `json:"id" db:"id"`
	CustomerRef string    `json:"customer_ref" db:"customer_ref"`
	ItemName    string    `json:"item_name" db:"item_name"`
	ItemPrice   float64   `json:"item_price" db:"item_price"`
	OrderValue  float64   `json:"order_value" db:"order_value"`
	Timestamp   time.Time `json:"timestamp" db:"ordered_at"`
	HourOfDay   int       `json:"hour_of_day"`
	DateKey     string    `json:"date_key"`
}

// NewOrderRecord создает запись заказа и выводит HourOfDay/DateKey из метки времени.
func NewOrderRecord(id, customerRef, itemName string, itemPrice, orderValue float64, ts time.Time) OrderRecord {
	ts = ts.UTC()
	return OrderRecord{
		ID:          id,
		CustomerRef: customerRef,
		ItemName:    itemName,
		ItemPrice:   itemPrice,
		OrderValue:  orderValue,
		Timestamp:   ts,
		HourOfDay:   ts.Hour(),
		DateKey:     ts.Format(DateKeyLayout),
	}
}

// ItemSales описывает продажи одной позиции меню.
type ItemSales struct {
	Name       string  `json:"name"`
	SalesCount int     `json:"sales_count"`
	Revenue    float64 `json:"revenue"`
}

// HourBucket хранит количество заказов за один час суток.
type HourBucket struct {
	Hour       int `json:"hour"`
	OrderCount int `json:"order_count"`
}

// DailyVolume хранит количество заказов за календарный день.
type DailyVolume struct {
	Date       string `json:"date"`
	OrderCount int    `json:"order_count"`
}

// AggregateSummary представляет сводку по журналу заказов для дашборда.
// PeakHours всегда содержит ровно 24 корзины (индекс = час),
// OrderVolumeByDate — не более 7 дней, TopSellingItems и RecentOrders — не более 5 записей.
type AggregateSummary struct {
	TotalSales        float64       `json:"total_sales"`
	TotalOrders       int           `json:"total_orders"`
	AverageOrderValue float64       `json:"average_order_value"`
	UniqueCustomers   int           `json:"unique_customers"`
	TopSellingItems   []ItemSales   `json:"top_selling_items"`
	PeakHours         []HourBucket  `json:"peak_hours"`
	OrderVolumeByDate []DailyVolume `json:"order_volume_by_date"`
	RecentOrders      []OrderRecord `json:"recent_orders"`
}

// ImportResult описывает результат импорта журнала заказов.
// Records не сериализуются: при попадании в кеш архивировать уже нечего.
type ImportResult struct {
	Summary      *AggregateSummary `json:"summary"`
	ParsedRows   int               `json:"parsed_rows"`
	SkippedRows  int               `json:"skipped_rows"`
	ArchiveError string            `json:"archive_error,omitempty"`
	Records      []OrderRecord     `json:"-"`
}
