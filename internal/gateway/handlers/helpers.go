package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inspectra-system/internal/apperr"
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// respondError maps the engine's error kinds onto HTTP statuses. Every
// propagated error resolves to a human-readable message.
func respondError(c *gin.Context, err error) {
	var validation *apperr.ValidationError
	var notFound *apperr.NotFoundError
	var authRequired *apperr.AuthenticationRequired
	var dependency *apperr.DependencyFailure

	switch {
	case errors.As(err, &validation):
		fail(c, http.StatusBadRequest, validation.Message)
	case errors.As(err, &notFound):
		fail(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &authRequired):
		fail(c, http.StatusUnauthorized, authRequired.Message)
	case errors.As(err, &dependency):
		fail(c, http.StatusBadGateway, dependency.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

func parseInt64Param(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}

func parseInt32Param(c *gin.Context, param string) (int32, error) {
	val, err := strconv.ParseInt(c.Param(param), 10, 32)
	return int32(val), err
}

func parseInt32Query(c *gin.Context, param string) *int32 {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	val, err := strconv.ParseInt(str, 10, 32)
	if err != nil {
		return nil
	}
	result := int32(val)
	return &result
}

func parseStringQuery(c *gin.Context, param string) *string {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	return &str
}

func pageParams(c *gin.Context) (int, string) {
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return pageSize, c.Query("page_token")
}
