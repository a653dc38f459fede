package services

import (
	"context"
	"fmt"
	"time"

	"merchant-dashboard/internal/database"
	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"
)

// ArchiveService сохраняет импортированные заказы в PostgreSQL.
// Архив — вторичное хранилище: ошибка архивации не отменяет расчет сводки.
type ArchiveService struct {
	db  *database.DB
	log *logger.Logger
}

// NewArchiveService создает сервис архива заказов.
func NewArchiveService(db *database.DB, log *logger.Logger) *ArchiveService {
	return &ArchiveService{db: db, log: log}
}

// ImportOrders вставляет записи одним батчем в транзакции.
// Повторный импорт того же журнала не создает дубликатов.
func (s *ArchiveService) ImportOrders(ctx context.Context, records []models.OrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO order_archive (id, customer_ref, item_name, item_price, order_value, ordered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	for _, record := range records {
		if _, err := tx.ExecContext(ctx, query,
			record.ID, record.CustomerRef, record.ItemName,
			record.ItemPrice, record.OrderValue, record.Timestamp); err != nil {
			return fmt.Errorf("failed to archive order %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithField("count", len(records)).Info("Orders archived")
	return nil
}

// ListOrders возвращает архивные заказы, новые первыми.
func (s *ArchiveService) ListOrders(ctx context.Context, limit, offset int) ([]models.OrderRecord, error) {
	query := `
		SELECT id, customer_ref, item_name, item_price, order_value, ordered_at
		FROM order_archive
		ORDER BY ordered_at DESC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived orders: %w", err)
	}
	defer rows.Close()

	var records []models.OrderRecord
	for rows.Next() {
		var (
			id, customerRef, itemName string
			itemPrice, orderValue     float64
			orderedAt                 time.Time
		)
		if err := rows.Scan(&id, &customerRef, &itemName, &itemPrice, &orderValue, &orderedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived order: %w", err)
		}
		records = append(records, models.NewOrderRecord(id, customerRef, itemName, itemPrice, orderValue, orderedAt))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archived orders: %w", err)
	}

	return records, nil
}

// VolumeByDate агрегирует количество заказов по дням за последние days дней.
func (s *ArchiveService) VolumeByDate(ctx context.Context, days int) ([]models.DailyVolume, error) {
	query := `
		SELECT to_char(date_trunc('day', ordered_at), 'YYYY-MM-DD') AS day,
		       COUNT(*) AS orders_count
		FROM order_archive
		WHERE ordered_at >= NOW() - make_interval(days => $1)
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load order volume: %w", err)
	}
	defer rows.Close()

	var result []models.DailyVolume
	for rows.Next() {
		var volume models.DailyVolume
		if err := rows.Scan(&volume.Date, &volume.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan order volume: %w", err)
		}
		result = append(result, volume)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order volume: %w", err)
	}

	return result, nil
}
