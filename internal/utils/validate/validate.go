// Package validate wires up the shared go-playground/validator instance
// and the parsing of listing query parameters. Keeping one configured
// instance here means every handler applies identical rules and custom
// validations are registered exactly once.
package validate

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Names may contain only letters and spaces.
var nameRe = regexp.MustCompile(`^[A-Za-z\s]+$`)

var instance = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// RegisterValidation only errors on an empty tag name.
	_ = v.RegisterValidation("letters_spaces", func(fl validator.FieldLevel) bool {
		return nameRe.MatchString(fl.Field().String())
	})

	return v
}

// Struct checks all validate:"..." tags on v. The returned error is a
// validator.ValidationErrors on rule failure, suitable for
// response.ValidationError.
func Struct(v any) error {
	return instance.Struct(v)
}

// Defaults for GET /api/students when the query omits page/limit.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ListQuery is the parsed, validated query of the listing endpoint.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// ParseListQuery reads page, limit and search from the URL query.
// Absent values fall back to the defaults; non-integer or non-positive
// values are rejected.
func ParseListQuery(values url.Values) (ListQuery, error) {
	q := ListQuery{
		Page:   DefaultPage,
		Limit:  DefaultLimit,
		Search: values.Get("search"),
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return ListQuery{}, errors.New("page must be a positive integer")
		}
		q.Page = page
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return ListQuery{}, errors.New("limit must be a positive integer")
		}
		q.Limit = limit
	}

	return q, nil
}
