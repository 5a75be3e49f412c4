package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// bulkRunSortColumns maps the sort keys a client may send to bulk_runs columns.
// Anything else never reaches SQL.
var bulkRunSortColumns = map[string]string{
	"created_at":   "created_at",
	"completed_at": "completed_at",
	"total":        "total",
	"failed":       "failed",
	"status":       "status",
}

// bulkRunOrder builds the ORDER BY for a run listing. Unknown keys fall back to
// created_at, any direction other than asc means descending, and id breaks ties
// so pages are stable.
func bulkRunOrder(orderBy, orderDir string) clause.OrderBy {
	column, ok := bulkRunSortColumns[strings.TrimSpace(orderBy)]
	if !ok {
		column = "created_at"
	}
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: !strings.EqualFold(strings.TrimSpace(orderDir), "asc")},
		{Column: clause.Column{Name: "id"}},
	}}
}
