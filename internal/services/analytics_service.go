package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"merchant-dashboard/internal/apperror"
	"merchant-dashboard/internal/config"
	"merchant-dashboard/internal/csvschema"
	"merchant-dashboard/internal/logger"
	"merchant-dashboard/internal/models"
	"merchant-dashboard/internal/redis"
)

const (
	DefaultTopItemsLimit     = 5
	DefaultRecentOrdersLimit = 5
	DefaultVolumeDays        = 7
	defaultCacheTTL          = 10 * time.Minute

	hoursPerDay = 24
)

// latestSummaryKey — ключ последней рассчитанной сводки.
const latestSummaryKey = "summary:latest"

// AnalyticsService агрегирует журнал заказов в сводку для дашборда
// и кеширует результаты по хешу входного текста.
type AnalyticsService struct {
	redis         *redis.Client
	log           *logger.Logger
	cacheTTL      time.Duration
	topItems      int
	recentOrders  int
	volumeDays    int
	skipMalformed bool
	now           func() time.Time
}

// NewAnalyticsService создает сервис агрегации журнала заказов.
func NewAnalyticsService(redisClient *redis.Client, log *logger.Logger, cfg *config.AnalyticsConfig) *AnalyticsService {
	cacheTTL := defaultCacheTTL
	topItems := DefaultTopItemsLimit
	recentOrders := DefaultRecentOrdersLimit
	volumeDays := DefaultVolumeDays
	skipMalformed := true

	if cfg != nil {
		if cfg.CacheTTLMinutes > 0 {
			cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
		}
		if cfg.TopItemsLimit > 0 {
			topItems = cfg.TopItemsLimit
		}
		if cfg.RecentOrdersLimit > 0 {
			recentOrders = cfg.RecentOrdersLimit
		}
		if cfg.VolumeDays > 0 {
			volumeDays = cfg.VolumeDays
		}
		skipMalformed = cfg.SkipMalformedRows
	}

	return &AnalyticsService{
		redis:         redisClient,
		log:           log,
		cacheTTL:      cacheTTL,
		topItems:      topItems,
		recentOrders:  recentOrders,
		volumeDays:    volumeDays,
		skipMalformed: skipMalformed,
		now:           time.Now,
	}
}

// Aggregate разбирает текст журнала заказов и возвращает сводку.
// Результат кешируется по SHA-256 входного текста; повторный импорт
// того же журнала обслуживается из кеша.
func (s *AnalyticsService) Aggregate(ctx context.Context, csvText string) (*models.ImportResult, error) {
	cacheKey := s.buildCacheKey(csvText)

	var cached models.ImportResult
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	parsed, err := csvschema.Parse(csvText, csvschema.Options{
		SkipMalformedRows: s.skipMalformed,
		Now:               s.now,
	})
	if err != nil {
		return nil, apperror.Validation(fmt.Sprintf("failed to parse order log: %v", err), err)
	}

	result := &models.ImportResult{
		Summary:     s.Summarize(parsed.Records),
		ParsedRows:  len(parsed.Records),
		SkippedRows: parsed.Skipped,
		Records:     parsed.Records,
	}

	s.saveToCache(ctx, cacheKey, result)
	s.saveToCache(ctx, redis.GenerateKey(redis.KeyPrefixStats, latestSummaryKey), result.Summary)

	return result, nil
}

// LatestSummary возвращает последнюю рассчитанную сводку из кеша.
func (s *AnalyticsService) LatestSummary(ctx context.Context) (*models.AggregateSummary, error) {
	if s.redis == nil {
		return nil, apperror.NotFound("no summary available", nil)
	}

	var summary models.AggregateSummary
	if err := s.redis.Get(ctx, redis.GenerateKey(redis.KeyPrefixStats, latestSummaryKey), &summary); err != nil {
		return nil, apperror.NotFound("no summary available", err)
	}
	return &summary, nil
}

// Summarize сводит записи заказов в агрегаты дашборда. Чистая функция:
// один и тот же набор записей всегда дает идентичную сводку.
func (s *AnalyticsService) Summarize(records []models.OrderRecord) *models.AggregateSummary {
	summary := &models.AggregateSummary{
		TopSellingItems:   []models.ItemSales{},
		PeakHours:         make([]models.HourBucket, hoursPerDay),
		OrderVolumeByDate: []models.DailyVolume{},
		RecentOrders:      []models.OrderRecord{},
	}
	for hour := range summary.PeakHours {
		summary.PeakHours[hour].Hour = hour
	}

	itemStats := make(map[string]*models.ItemSales)
	customers := make(map[string]struct{})
	volumeByDate := make(map[string]int)

	for _, record := range records {
		summary.TotalSales += record.OrderValue
		summary.TotalOrders++
		customers[record.CustomerRef] = struct{}{}
		summary.PeakHours[record.HourOfDay].OrderCount++
		volumeByDate[record.DateKey]++

		// Регистр имени позиции не нормализуется: "Latte" и "latte" — разные ключи.
		stats, ok := itemStats[record.ItemName]
		if !ok {
			stats = &models.ItemSales{Name: record.ItemName}
			itemStats[record.ItemName] = stats
		}
		stats.SalesCount++
		stats.Revenue += record.OrderValue
	}

	summary.UniqueCustomers = len(customers)
	if summary.TotalOrders > 0 {
		summary.AverageOrderValue = summary.TotalSales / float64(summary.TotalOrders)
	}

	summary.TopSellingItems = topItems(itemStats, s.topItems)
	summary.OrderVolumeByDate = lastDays(volumeByDate, s.volumeDays)
	summary.RecentOrders = recentOrders(records, s.recentOrders)

	return summary
}

// topItems сортирует позиции по продажам (количество, выручка, имя) и обрезает до limit.
func topItems(itemStats map[string]*models.ItemSales, limit int) []models.ItemSales {
	items := make([]models.ItemSales, 0, len(itemStats))
	for _, stats := range itemStats {
		items = append(items, *stats)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].SalesCount != items[j].SalesCount {
			return items[i].SalesCount > items[j].SalesCount
		}
		if items[i].Revenue != items[j].Revenue {
			return items[i].Revenue > items[j].Revenue
		}
		return items[i].Name < items[j].Name
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// lastDays сортирует дни по возрастанию и оставляет не более limit последних.
func lastDays(volumeByDate map[string]int, limit int) []models.DailyVolume {
	days := make([]models.DailyVolume, 0, len(volumeByDate))
	for date, count := range volumeByDate {
		days = append(days, models.DailyVolume{Date: date, OrderCount: count})
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})

	if len(days) > limit {
		days = days[len(days)-limit:]
	}
	return days
}

// recentOrders возвращает не более limit последних заказов (новые первыми).
func recentOrders(records []models.OrderRecord, limit int) []models.OrderRecord {
	recent := make([]models.OrderRecord, len(records))
	copy(recent, records)

	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].Timestamp.Equal(recent[j].Timestamp) {
			return recent[i].Timestamp.After(recent[j].Timestamp)
		}
		return recent[i].ID < recent[j].ID
	})

	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}

func (s *AnalyticsService) buildCacheKey(csvText string) string {
	digest := sha256.Sum256([]byte(csvText))
	return redis.GenerateKey(redis.KeyPrefixStats, "import:"+hex.EncodeToString(digest[:]))
}

func (s *AnalyticsService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}

	if err := s.redis.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (s *AnalyticsService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache aggregation result")
	}
}
