package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := models.MigrateCatalogDB(db); err != nil {
		t.Fatalf("failed to migrate catalog tables: %v", err)
	}

	return db
}

func newTestHandler(t *testing.T) (*CatalogHandler, *gorm.DB) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	db := setupTestDB(t)
	return NewCatalogHandler(db, rdb, zap.NewNop()), db
}

func seedProduct(t *testing.T, db *gorm.DB, testIDs ...int32) int32 {
	t.Helper()

	category := models.Category{Name: fmt.Sprintf("Laticínios-%s", uuid.NewString())}
	require.NoError(t, db.Create(&category).Error)

	var tests []models.Test
	for _, id := range testIDs {
		tests = append(tests, models.Test{ID: id, Name: fmt.Sprintf("Teste %d", id)})
	}

	product := models.Product{
		Name:       "Queijo Minas",
		CategoryID: category.ID,
		Tests:      tests,
	}
	require.NoError(t, db.Create(&product).Error)
	return product.ID
}

func TestGetProduct(t *testing.T) {
	h, db := newTestHandler(t)
	productID := seedProduct(t, db, 10, 20)

	product, err := h.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, "Queijo Minas", product.Name)
	require.NotNil(t, product.Category)
	assert.Len(t, product.Tests, 2)
}

func TestGetProduct_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.GetProduct(context.Background(), 9999)
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestApplicableTests(t *testing.T) {
	h, db := newTestHandler(t)
	productID := seedProduct(t, db, 20, 10)

	ids, err := h.ApplicableTests(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 20}, ids)
}

func TestApplicableTests_NoneBound(t *testing.T) {
	h, db := newTestHandler(t)
	productID := seedProduct(t, db)

	ids, err := h.ApplicableTests(context.Background(), productID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestApplicableTests_ServedFromCache(t *testing.T) {
	h, db := newTestHandler(t)
	productID := seedProduct(t, db, 10)

	first, err := h.ApplicableTests(context.Background(), productID)
	require.NoError(t, err)
	require.Equal(t, []int32{10}, first)

	// Bind another test directly; the cached snapshot keeps serving until
	// the entry expires.
	require.NoError(t, db.Create(&models.Test{ID: 30, Name: "Teste 30"}).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO product_tests (product_id, test_id) VALUES (?, ?)", productID, int32(30),
	).Error)

	second, err := h.ApplicableTests(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, []int32{10}, second)
}

func TestGetManufacturerAndReseller(t *testing.T) {
	h, db := newTestHandler(t)

	manufacturer := models.Manufacturer{Name: "Fazenda Boa Vista"}
	require.NoError(t, db.Create(&manufacturer).Error)
	reseller := models.Reseller{Name: "Distribuidora Central"}
	require.NoError(t, db.Create(&reseller).Error)

	gotM, err := h.GetManufacturer(context.Background(), manufacturer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fazenda Boa Vista", gotM.Name)

	gotR, err := h.GetReseller(context.Background(), reseller.ID)
	require.NoError(t, err)
	assert.Equal(t, "Distribuidora Central", gotR.Name)

	var notFound *apperr.NotFoundError
	_, err = h.GetManufacturer(context.Background(), 9999)
	assert.ErrorAs(t, err, &notFound)
	_, err = h.GetReseller(context.Background(), 9999)
	assert.ErrorAs(t, err, &notFound)
}

func TestListTests(t *testing.T) {
	h, db := newTestHandler(t)
	seedProduct(t, db, 10, 20)

	tests, err := h.ListTests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, int32(10), tests[0].ID)
}

func TestListProducts_Pagination(t *testing.T) {
	h, db := newTestHandler(t)
	for i := 0; i < 3; i++ {
		seedProduct(t, db)
	}

	products, total, next, err := h.ListProducts(context.Background(), ListProductsFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, products, 2)
	require.Equal(t, "2", next)

	rest, _, next, err := h.ListProducts(context.Background(), ListProductsFilter{PageSize: 2, PageToken: next})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Empty(t, next)
}
