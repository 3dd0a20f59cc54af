package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPaginationParams normalizes page and limit the way query parameters are
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetPaginationParams extracts and validates pagination parameters from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPageSize)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	return NewPaginationParams(page, limit)
}

// NewPaginationResponse computes the page count for total matches
func NewPaginationResponse(params PaginationParams, total int64) PaginationResponse {
	pages := 0
	if params.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(params.Limit)))
	}

	return PaginationResponse{
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Pages: pages,
	}
}

// ParseSort turns "-createdAt" style parameters into an order clause over the
// allowed columns. Unknown fields fall back to the default sort.
func ParseSort(raw string, columns map[string]string) string {
	if raw == "" {
		raw = constants.DefaultSort
	}

	var clauses []string
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		direction := "ASC"
		if name, ok := strings.CutPrefix(field, "-"); ok {
			field = name
			direction = "DESC"
		}

		column, ok := columns[field]
		if !ok {
			continue
		}
		clauses = append(clauses, column+" "+direction)
	}

	if len(clauses) == 0 {
		if raw == constants.DefaultSort {
			return ""
		}
		return ParseSort(constants.DefaultSort, columns)
	}

	// id keeps pages stable when the sort column has ties
	if _, ok := columns["id"]; ok {
		clauses = append(clauses, columns["id"]+" "+strings.Fields(clauses[len(clauses)-1])[1])
	}

	return strings.Join(clauses, ", ")
}
