// Package csvschema разбирает плоский CSV-журнал заказов в нормализованные записи.
// Колонки определяются по заголовку; если заголовок не распознан, используется
// историческая позиционная раскладка исходного журнала доставки.
package csvschema

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"merchant-dashboard/internal/models"

	"github.com/google/uuid"
)

// Позиционная раскладка исходного журнала (используется при нераспознанном заголовке).
const (
	legacyColItemName   = 6
	legacyColItemPrice  = 7
	legacyColOrderID    = 8
	legacyColOrderDate  = 9
	legacyColOrderTotal = 13
	legacyColCustomerID = 14

	legacyMinFields = 15
)

// timeLayouts — допустимые форматы даты заказа (проверяются по порядку).
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// headerAliases сопоставляет имена колонок заголовка логическим полям записи.
var headerAliases = map[string]string{
	"order_id":    "order_id",
	"orderid":     "order_id",
	"customer_id": "customer_id",
	"customerid":  "customer_id",
	"customer":    "customer_id",
	"item_name":   "item_name",
	"item":        "item_name",
	"product":     "item_name",
	"item_price":  "item_price",
	"price":       "item_price",
	"order_total": "order_total",
	"total":       "order_total",
	"amount":      "order_total",
	"order_date":  "order_date",
	"date":        "order_date",
	"ordered_at":  "order_date",
}

// Schema описывает раскладку колонок журнала заказов.
type Schema struct {
	OrderID    int
	CustomerID int
	ItemName   int
	ItemPrice  int
	OrderTotal int
	OrderDate  int
	Positional bool
	minFields  int
}

// Options управляют политикой разбора.
type Options struct {
	// SkipMalformedRows определяет поведение на битых строках:
	// true — строка пропускается, false — разбор прерывается с ошибкой.
	SkipMalformedRows bool
	// Now задает источник времени для дат, которые не удалось разобрать.
	Now func() time.Time
}

// Result содержит разобранные записи и счетчик пропущенных строк.
type Result struct {
	Records []models.OrderRecord
	Skipped int
}

// ResolveSchema определяет раскладку колонок по строке заголовка.
// Раскладка признается именованной только когда найдены все шесть полей.
func ResolveSchema(header []string) Schema {
	indexes := make(map[string]int, 6)
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		normalized = strings.ReplaceAll(normalized, " ", "_")
		if field, ok := headerAliases[normalized]; ok {
			if _, seen := indexes[field]; !seen {
				indexes[field] = i
			}
		}
	}

	if len(indexes) == 6 {
		maxIndex := 0
		for _, idx := range indexes {
			if idx > maxIndex {
				maxIndex = idx
			}
		}
		return Schema{
			OrderID:    indexes["order_id"],
			CustomerID: indexes["customer_id"],
			ItemName:   indexes["item_name"],
			ItemPrice:  indexes["item_price"],
			OrderTotal: indexes["order_total"],
			OrderDate:  indexes["order_date"],
			minFields:  maxIndex + 1,
		}
	}

	return Schema{
		OrderID:    legacyColOrderID,
		CustomerID: legacyColCustomerID,
		ItemName:   legacyColItemName,
		ItemPrice:  legacyColItemPrice,
		OrderTotal: legacyColOrderTotal,
		OrderDate:  legacyColOrderDate,
		Positional: true,
		minFields:  legacyMinFields,
	}
}

// Parse разбирает текст журнала заказов. Первая строка всегда считается заголовком.
// Ошибка возвращается только при выключенном SkipMalformedRows.
func Parse(text string, opts Options) (*Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Result{}, nil
	}
	if err != nil {
		if opts.SkipMalformedRows {
			return &Result{Skipped: 1}, nil
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	schema := ResolveSchema(header)
	result := &Result{}
	line := 1

	for {
		line++
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if opts.SkipMalformedRows {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		if isBlankRow(fields) {
			continue
		}

		record, ok := parseRow(schema, fields, now)
		if !ok {
			if opts.SkipMalformedRows {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("row %d has %d fields, expected at least %d", line, len(fields), schema.minFields)
		}

		result.Records = append(result.Records, record)
	}

	return result, nil
}

// parseRow собирает запись заказа из полей строки.
// Нечисловые цена/сумма приводятся к 0, неразборная дата — к текущему моменту.
func parseRow(schema Schema, fields []string, now func() time.Time) (models.OrderRecord, bool) {
	if len(fields) < schema.minFields {
		return models.OrderRecord{}, false
	}

	id := strings.TrimSpace(fields[schema.OrderID])
	if id == "" {
		id = uuid.New().String()
	}

	ts := parseTimestamp(fields[schema.OrderDate], now)

	record := models.NewOrderRecord(
		id,
		strings.TrimSpace(fields[schema.CustomerID]),
		strings.TrimSpace(fields[schema.ItemName]),
		parseFloat(fields[schema.ItemPrice]),
		parseFloat(fields[schema.OrderTotal]),
		ts,
	)
	return record, true
}

// parseTimestamp перебирает допустимые форматы даты, при неудаче возвращает "сейчас".
func parseTimestamp(raw string, now func() time.Time) time.Time {
	value := strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return now().UTC()
}

func parseFloat(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
