package product

import "time"

// Column names every input file must carry in its header.
const (
	ColumnName         = "name"
	ColumnDescription  = "description"
	ColumnPrice        = "price"
	ColumnStockLevel   = "stock_level"
	ColumnDiscontinued = "discontinued"
)

// RequiredColumns lists the header columns in their canonical order.
var RequiredColumns = []string{
	ColumnName,
	ColumnDescription,
	ColumnPrice,
	ColumnStockLevel,
	ColumnDiscontinued,
}

// RawRecord is one decoded input row keyed by lowercase column name.
// Values are the raw cell strings; nothing has been validated yet.
type RawRecord struct {
	Line   int               // 1-based line in the source file, 0 if unknown
	Fields map[string]string // column name -> cell value
}

// Get returns the cell for a column, or "" when the row does not have it.
func (r RawRecord) Get(column string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[column]
}

// Name returns the product name cell.
func (r RawRecord) Name() string {
	return r.Get(ColumnName)
}

// Draft is a transformed row ready to be persisted (or printed in dry-run mode).
type Draft struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	StockLevel     int        `json:"stock_level"`
	Price          float64    `json:"price"`
	DiscontinuedAt *time.Time `json:"discontinued_at"`
}

// Product is a draft after the store accepted it.
type Product struct {
	ID int64
	Draft
	CreatedAt time.Time
}
