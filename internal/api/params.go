package api

import (
	"fmt"
	"strconv"

	"rentacar-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// queryParser reads optional query parameters and keeps the first parse error
type queryParser struct {
	c   *gin.Context
	err error
}

func newQueryParser(c *gin.Context) *queryParser {
	return &queryParser{c: c}
}

func (q *queryParser) fail(name, raw string, err error) {
	if q.err == nil {
		q.err = fmt.Errorf("invalid %s %q: %v", name, raw, err)
	}
}

func (q *queryParser) int64Ptr(name string) *int64 {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	return &v
}

func (q *queryParser) intPtr(name string) *int {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	return &v
}

func (q *queryParser) intOr(name string, def int) int {
	if v := q.intPtr(name); v != nil {
		return *v
	}
	return def
}

func (q *queryParser) date(name string) *models.Date {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	return &d
}

func (q *queryParser) decimal(name string) *decimal.Decimal {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	return &d
}

func (q *queryParser) required(name string, present bool) {
	if !present && q.err == nil {
		q.err = fmt.Errorf("%s is required", name)
	}
}

func queryEnum[T any](q *queryParser, name string, parse func(string) (T, error)) *T {
	raw := q.c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := parse(raw)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	return &v
}
