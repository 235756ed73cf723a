package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

var kindStatus = map[models.ErrorKind]int{
	models.KindNotFound:        http.StatusNotFound,
	models.KindValidation:      http.StatusBadRequest,
	models.KindUnauthenticated: http.StatusUnauthorized,
	models.KindForbidden:       http.StatusForbidden,
	models.KindConflict:        http.StatusConflict,
	models.KindInternal:        http.StatusInternalServerError,
}

// respondError writes err as {"error", "fields"}; internal details are only logged
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	kind := models.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(contextKeyReqID)).
			Msg("Request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	var e *models.Error
	errors.As(err, &e)
	body := gin.H{"error": e.Message}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.JSON(status, body)
}

// bindJSON decodes the request body, reporting widget decode failures by index
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bodyError(err)
	}
	return nil
}

// bindOptionalJSON is bindJSON that accepts an empty body
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return bodyError(err)
	}
	return nil
}

// bindQuery decodes query parameters into dst
func bindQuery(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return models.Invalid("invalid query: " + err.Error())
	}
	return nil
}

func bodyError(err error) error {
	var widgetErr *models.WidgetDecodeError
	if errors.As(err, &widgetErr) {
		return models.Invalid("invalid widgets", models.ValidationError{
			Field:   fmt.Sprintf("widgets[%d]", widgetErr.Index),
			Message: widgetErr.Err.Error(),
		})
	}
	return models.Invalid("invalid request body: " + err.Error())
}

// pathID parses a positive integer path parameter
func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, models.Invalid(name+" must be a positive integer", models.ValidationError{Field: name, Message: "must be a positive integer", Value: raw})
	}
	return id, nil
}
