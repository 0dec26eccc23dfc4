// Package importer drives one product import from a row source to a summary.
//
// A [Runner] consumes rows strictly in order, one at a time:
//
//  1. Rows excluded by the business rules are counted as skipped.
//  2. Kept rows become a product.Draft.
//  3. In dry-run mode the draft is printed and counted as a success.
//  4. In commit mode the draft is handed to the [Creator]; a failed create is
//     counted, reported by product name and the run moves on.
//
// Only source errors and cancellation end a run early. The resulting
// [Summary] is rendered by [FormatText], [FormatJSON] or [RenderHTML].
package importer
