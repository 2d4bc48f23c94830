package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database/models"
	inspection "inspectra-system/internal/services/inspection/handler"
)

const (
	OVERVIEW_CACHE_PREFIX = "dashboard:overview:"
	CACHE_TTL_SHORT       = 5 * time.Minute

	bucketDays = 5
)

// DashboardHandler is the read-only reporting layer: it buckets the
// current month's inspections into fixed 5-day windows capped at today,
// plus status counts using the shared display-status derivation.
type DashboardHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger
	now   func() time.Time
}

func NewDashboardHandler(db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		db:    db,
		redis: redisClient,
		log:   log,
		now:   time.Now,
	}
}

type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int64     `json:"count"`
}

type Overview struct {
	MonthStart   time.Time        `json:"month_start"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Total        int64            `json:"total"`
	Buckets      []Bucket         `json:"buckets"`
	StatusCounts map[string]int64 `json:"status_counts"`
}

func (s *DashboardHandler) Overview(ctx context.Context) (*Overview, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	cacheKey := fmt.Sprintf("%s%s", OVERVIEW_CACHE_PREFIX, now.Format("2006-01-02"))
	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		var overview Overview
		if err := json.Unmarshal([]byte(cached), &overview); err == nil {
			return &overview, nil
		}
	}

	// The month window bounds the result set; bucketing happens in memory
	// over at most one month of rows.
	var inspections []models.Inspection
	if err := s.db.Preload("Tests").
		Where("created_at >= ? AND created_at < ?", monthStart, dayEnd).
		Find(&inspections).Error; err != nil {
		return nil, apperr.Dependency("inspection store", err)
	}

	overview := &Overview{
		MonthStart:   monthStart,
		GeneratedAt:  now,
		Total:        int64(len(inspections)),
		Buckets:      makeBuckets(monthStart, dayEnd),
		StatusCounts: map[string]int64{},
	}

	for i := range inspections {
		insp := &inspections[i]
		overview.StatusCounts[inspection.DeriveDisplayStatus(insp, now)]++
		for b := range overview.Buckets {
			bucket := &overview.Buckets[b]
			if !insp.CreatedAt.Before(bucket.Start) && insp.CreatedAt.Before(bucket.End) {
				bucket.Count++
				break
			}
		}
	}

	if data, err := json.Marshal(overview); err == nil {
		if err := s.redis.Set(ctx, cacheKey, data, CACHE_TTL_SHORT).Err(); err != nil {
			s.log.Warn("failed to cache dashboard overview", zap.Error(err))
		}
	}

	return overview, nil
}

// makeBuckets slices [monthStart, capAt) into 5-day windows; the last
// bucket ends at today instead of running past it.
func makeBuckets(monthStart, capAt time.Time) []Bucket {
	var buckets []Bucket
	for start := monthStart; start.Before(capAt); start = start.AddDate(0, 0, bucketDays) {
		end := start.AddDate(0, 0, bucketDays)
		if end.After(capAt) {
			end = capAt
		}
		buckets = append(buckets, Bucket{
			Label: fmt.Sprintf("%s-%s", start.Format("02/01"), end.AddDate(0, 0, -1).Format("02/01")),
			Start: start,
			End:   end,
		})
	}
	return buckets
}
