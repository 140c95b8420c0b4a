package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Validation constants
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPageNumber   = 1000000
)

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// ParsePagination validates and parses pagination parameters
func (rv *RequestValidator) ParsePagination(c *gin.Context) (int, int, error) {
	pageStr := c.DefaultQuery("page", "1")
	limitStr := c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize))

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 0, 0, apperrors.Validation(apperrors.CodeValidationFailed, "invalid page number")
	}
	if page > MaxPageNumber {
		page = MaxPageNumber
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		return 0, 0, apperrors.Validation(apperrors.CodeValidationFailed, "invalid page size")
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return page, limit, nil
}

// Struct runs the validate tags on v and reports the first failing field.
func (rv *RequestValidator) Struct(v any) error {
	err := rv.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.ErrBadRequest
	}

	fe := fieldErrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return apperrors.Validation(apperrors.CodeValidationFailed, fmt.Sprintf("%s failed %q validation", field, fe.Tag()))
}
