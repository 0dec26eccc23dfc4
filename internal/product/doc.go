// Package product holds the product record types and the business rules that
// decide whether an input row is imported.
//
// # Classification
//
// Every decoded row is a [RawRecord]. [ShouldSkip] applies the skip rules:
//
//   - price below 5.00 with fewer than 10 units in stock
//   - price above 1000.00, regardless of stock
//
// Rows that are kept become a [Draft] via [BuildDraft]. A draft is stamped
// with a discontinued_at time only when the discontinued column is exactly
// "yes" (see [DiscontinuedAt]).
//
// # Malformed Numbers
//
// Numeric columns never fail a row. [ParsePrice] and [ParseStockLevel] fall
// back to zero for values that do not parse, so a malformed price is treated
// as 0.00 and goes through the skip rules like any other value.
package product
