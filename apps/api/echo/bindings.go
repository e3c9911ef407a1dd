package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/borisstroganov/accessible-health-dashboard/core"
)

// orderingParam lists comma separated fields, "-" prefixed for descending order:
// ?ordering=status,-created_at
const orderingParam = "ordering"

// bindOrdering reads the ordering query param. Unknown and repeated fields are dropped.
func bindOrdering(ctx echo.Context, allowed map[string]bool) []core.DBOrdering {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return nil
	}

	var (
		orderings []core.DBOrdering
		seen      = make(map[string]bool)
	)
	for _, field := range strings.Split(raw, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !allowed[field] || seen[field] {
			continue
		}
		seen[field] = true
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}
