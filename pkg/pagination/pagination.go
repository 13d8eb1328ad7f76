package pagination

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
)

const (
	// DefaultLimit is the page size used when only an offset is provided.
	DefaultLimit = 5
	// MaxLimit caps how many rows a single page can request.
	MaxLimit = 100
)

// Params holds limit/offset inputs. Lists are unpaginated unless Enabled is set.
type Params struct {
	Enabled bool
	Limit   int
	Offset  int
}

// Meta is returned next to a paginated list.
type Meta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Count  int64 `json:"count"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Parse builds Params from raw limit and offset query values. Pagination only switches on
// when at least one of them is present.
func Parse(rawLimit, rawOffset string) (Params, error) {
	rawLimit = strings.TrimSpace(rawLimit)
	rawOffset = strings.TrimSpace(rawOffset)
	if rawLimit == "" && rawOffset == "" {
		return Params{}, nil
	}

	params := Params{Enabled: true, Limit: DefaultLimit}
	if rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			return Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
		}
		params.Limit = NormalizeLimit(limit)
	}
	if rawOffset != "" {
		offset, err := strconv.Atoi(rawOffset)
		if err != nil || offset < 0 {
			return Params{}, pkgerrors.New(pkgerrors.CodeValidation, "offset must be a non-negative integer")
		}
		params.Offset = offset
	}
	return params, nil
}

// MetaFor builds the response metadata for a page.
func (p Params) MetaFor(count int64) *Meta {
	if !p.Enabled {
		return nil
	}
	return &Meta{Limit: p.Limit, Offset: p.Offset, Count: count}
}

// Ordering maps public ordering keys to the columns they sort by.
type Ordering map[string][]string

// Clause converts a comma separated ordering parameter such as "-name,created_at" into an
// ORDER BY clause. Unknown keys are rejected. An empty value yields fallback.
func (o Ordering) Clause(raw, fallback string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	var parts []string
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		direction := "ASC"
		key := token
		if strings.HasPrefix(token, "-") {
			direction = "DESC"
			key = strings.TrimPrefix(token, "-")
		}
		columns, ok := o[key]
		if !ok {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ordering field %q", key))
		}
		for _, column := range columns {
			parts = append(parts, column+" "+direction)
		}
	}
	if len(parts) == 0 {
		return fallback, nil
	}
	return strings.Join(parts, ", "), nil
}
