package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cataloghandler "inspectra-system/internal/services/catalog/handler"
)

type CatalogHTTPHandler struct {
	catalog *cataloghandler.CatalogHandler
}

func NewCatalogHTTPHandler(catalog *cataloghandler.CatalogHandler) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: catalog}
}

func (s *CatalogHTTPHandler) ListProducts(c *gin.Context) {
	pageSize, pageToken := pageParams(c)
	products, total, nextToken, err := s.catalog.ListProducts(c.Request.Context(), cataloghandler.ListProductsFilter{
		CategoryID: parseInt32Query(c, "category_id"),
		SearchTerm: parseStringQuery(c, "search"),
		PageSize:   pageSize,
		PageToken:  pageToken,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"pagination": gin.H{
			"next_page_token": nextToken,
			"total_count":     total,
		},
	})
}

func (s *CatalogHTTPHandler) GetProduct(c *gin.Context) {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := s.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, product)
}

func (s *CatalogHTTPHandler) ListTests(c *gin.Context) {
	tests, err := s.catalog.ListTests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, tests)
}

func (s *CatalogHTTPHandler) GetManufacturer(c *gin.Context) {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid manufacturer ID")
		return
	}

	manufacturer, err := s.catalog.GetManufacturer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, manufacturer)
}

func (s *CatalogHTTPHandler) GetReseller(c *gin.Context) {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid reseller ID")
		return
	}

	reseller, err := s.catalog.GetReseller(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, reseller)
}
