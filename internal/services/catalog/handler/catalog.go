package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database/models"
)

const (
	PRODUCT_CACHE_PREFIX = "catalog:product:"
	PRODUCT_TESTS_PREFIX = "catalog:product-tests:"
	TESTS_CACHE_KEY      = "catalog:tests"
	CACHE_TTL_SHORT      = 5 * time.Minute
	CACHE_TTL_MEDIUM     = 30 * time.Minute
	CACHE_TTL_LONG       = 2 * time.Hour
)

// CatalogHandler is the read side of the catalog store. The engine never
// mutates reference entities through it.
type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		db:    db,
		redis: redisClient,
		log:   log,
	}
}

func (s *CatalogHandler) GetProduct(ctx context.Context, id int32) (*models.Product, error) {
	if id == 0 {
		return nil, apperr.Validation("product id must be provided")
	}

	cacheKey := fmt.Sprintf("%s%d", PRODUCT_CACHE_PREFIX, id)
	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		var product models.Product
		if err := json.Unmarshal([]byte(cached), &product); err == nil {
			return &product, nil
		}
	}

	var product models.Product
	if err := s.db.Preload("Category").Preload("Tests").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, apperr.Dependency("catalog store", err)
	}

	if data, err := json.Marshal(product); err == nil {
		_ = s.redis.Set(ctx, cacheKey, data, CACHE_TTL_MEDIUM).Err()
	}

	return &product, nil
}

// ApplicableTests reads the Product↔Test association. An empty result is
// not an error; the inspection then carries zero test rows.
func (s *CatalogHandler) ApplicableTests(ctx context.Context, productID int32) ([]int32, error) {
	if productID == 0 {
		return nil, apperr.Validation("product id must be provided")
	}

	cacheKey := fmt.Sprintf("%s%d", PRODUCT_TESTS_PREFIX, productID)
	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		var ids []int32
		if err := json.Unmarshal([]byte(cached), &ids); err == nil {
			return ids, nil
		}
	}

	var ids []int32
	if err := s.db.Table("product_tests").
		Where("product_id = ?", productID).
		Order("test_id").
		Pluck("test_id", &ids).Error; err != nil {
		return nil, apperr.Dependency("catalog store", err)
	}

	if data, err := json.Marshal(ids); err == nil {
		_ = s.redis.Set(ctx, cacheKey, data, CACHE_TTL_SHORT).Err()
	}

	return ids, nil
}

func (s *CatalogHandler) GetManufacturer(ctx context.Context, id int32) (*models.Manufacturer, error) {
	if id == 0 {
		return nil, apperr.Validation("manufacturer id must be provided")
	}

	var manufacturer models.Manufacturer
	if err := s.db.First(&manufacturer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("manufacturer", id)
		}
		return nil, apperr.Dependency("catalog store", err)
	}
	return &manufacturer, nil
}

func (s *CatalogHandler) GetReseller(ctx context.Context, id int32) (*models.Reseller, error) {
	if id == 0 {
		return nil, apperr.Validation("reseller id must be provided")
	}

	var reseller models.Reseller
	if err := s.db.First(&reseller, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("reseller", id)
		}
		return nil, apperr.Dependency("catalog store", err)
	}
	return &reseller, nil
}

type ListProductsFilter struct {
	CategoryID *int32
	SearchTerm *string
	PageSize   int
	PageToken  string
}

func (s *CatalogHandler) ListProducts(ctx context.Context, filter ListProductsFilter) ([]models.Product, int64, string, error) {
	var products []models.Product
	var total int64

	query := s.db.Model(&models.Product{}).Preload("Category").Preload("Tests")

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.SearchTerm != nil {
		searchTerm := "%" + *filter.SearchTerm + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", searchTerm, searchTerm)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, "", apperr.Dependency("catalog store", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	pageNumber := 1
	if filter.PageToken != "" {
		if n, err := strconv.Atoi(filter.PageToken); err == nil && n > 0 {
			pageNumber = n
		}
	}

	offset := (pageNumber - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&products).Error; err != nil {
		return nil, 0, "", apperr.Dependency("catalog store", err)
	}

	nextPageToken := ""
	if int64(pageNumber*pageSize) < total {
		nextPageToken = strconv.Itoa(pageNumber + 1)
	}

	return products, total, nextPageToken, nil
}

func (s *CatalogHandler) ListTests(ctx context.Context) ([]models.Test, error) {
	if cached, err := s.redis.Get(ctx, TESTS_CACHE_KEY).Result(); err == nil {
		var tests []models.Test
		if err := json.Unmarshal([]byte(cached), &tests); err == nil {
			return tests, nil
		}
	}

	var tests []models.Test
	if err := s.db.Order("id").Find(&tests).Error; err != nil {
		return nil, apperr.Dependency("catalog store", err)
	}

	if data, err := json.Marshal(tests); err == nil {
		_ = s.redis.Set(ctx, TESTS_CACHE_KEY, data, CACHE_TTL_LONG).Err()
	}

	return tests, nil
}
