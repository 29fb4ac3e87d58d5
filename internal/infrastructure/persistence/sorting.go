package persistence

import (
	"strings"

	"github.com/flipflop/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a listing may be ordered by. Client
// input never reaches ORDER BY unless it names one of these exactly.
type sortColumns map[string]struct{}

func columns(names ...string) sortColumns {
	set := sortColumns{"id": {}, "created_at": {}, "updated_at": {}}
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

var (
	productSortColumns         = columns("name", "price", "rating", "stock_quantity")
	orderSortColumns           = columns("order_number", "status", "payment_status", "total")
	supplierSortColumns        = columns("name", "is_active")
	supplierProductSortColumns = columns("supplier_sku", "name", "supplier_price", "last_synced_at")
)

// column returns the requested column when allowed and fallback otherwise
func (s sortColumns) column(requested, fallback string) string {
	if _, ok := s[strings.TrimSpace(requested)]; ok {
		return strings.TrimSpace(requested)
	}
	return fallback
}

// descending treats anything but an explicit "asc" as newest-first
func descending(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// orderClause builds a quoted ORDER BY term from client sort parameters
func orderClause(by, dir string, allowed sortColumns, fallback string) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Name: allowed.column(by, fallback)},
		Desc:   descending(dir),
	}
}

// paginate applies the filter's whitelisted ordering and clamped page window
func paginate(query *gorm.DB, filter shared.Filter, allowed sortColumns, fallback string) *gorm.DB {
	filter = filter.Clamped()
	return query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, allowed, fallback)).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}
