// Package engine implements the batch reconciliation core for pickup
// submissions: normalizing spreadsheet rows, grouping them into shipment
// units by remito number, driving one carrier registration per unit, and
// merging the per-unit outcomes back into an annotated output table.
//
// This package has no transport, XML, or file-format dependencies and can
// be driven by any host (HTTP server, CLI, tests).
package engine

import "context"

// Table is a parsed spreadsheet: one header row plus data rows.
// Cells are raw strings exactly as read from the sheet.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Row is one normalized pickup line item.
//
// Line is the 1-based sheet line the row came from (the header is line 1),
// kept for error reporting.
type Row struct {
	Remito       int64  // delivery-note number grouping rows into one pickup
	Name         string // addressee as "APELLIDO, NOMBRE"
	Street       string
	StreetNumber int64
	Locality     string
	Province     string
	PostalCode   int64
	Phone        string
	Email        string
	Reference    string
	PackageCount int64
	Line         int
}

// Unit is one shipment unit: all rows sharing a remito number.
// Rows is never empty; Rows[0] is the representative row whose address and
// contact fields drive the unit's envelope.
type Unit struct {
	Remito int64
	Rows   []Row
}

// Representative returns the first row of the unit.
func (u Unit) Representative() Row {
	return u.Rows[0]
}

// UnitOutcome is the terminal result for one unit: either one or more
// tracking numbers plus exactly one pickup order, or an error. Never both.
type UnitOutcome struct {
	Remito          int64
	TrackingNumbers []string
	PickupOrder     string
	Err             error
}

// Failed reports whether the unit ended in the failure variant.
func (o UnitOutcome) Failed() bool {
	return o.Err != nil
}

// BatchResult aggregates all unit outcomes for one run.
//
// Success is true iff at least one tracking number was produced anywhere in
// the batch; failed units are visible per row and per unit, never as a
// batch-level hard stop.
type BatchResult struct {
	Success         bool
	TrackingNumbers []string // flattened across successful units, unit order
	PickupOrders    []string // one per successful unit, unit order
	Outcomes        map[int64]UnitOutcome
	UnitOrder       []int64 // remitos in first-appearance order
	Processed       int     // successful units
	Failed          int     // failed units
	Output          Table   // input table annotated with result columns
}

// Progress describes one completed unit out of the batch total.
type Progress struct {
	Remito  int64
	Current int
	Total   int
}

// ProgressFunc is called once per unit as it finishes, in completion order.
type ProgressFunc func(Progress)

// Carrier registers one shipment unit with the remote pickup service and
// returns its tracking numbers and pickup-order number. One attempt per
// unit; the engine converts any error into that unit's failure outcome.
type Carrier interface {
	Register(ctx context.Context, unit Unit) (trackingNumbers []string, pickupOrder string, err error)
}

// LabelFetcher retrieves the PDF label sheet for one pickup order.
// It is exposed by hosts next to the batch engine but takes no part in
// batch orchestration.
type LabelFetcher interface {
	Label(ctx context.Context, orderID string) ([]byte, error)
}

// Output column names appended to the input table, and the status values
// written into the Estado column. The column headers are the operator-facing
// sheet contract.
const (
	ColTracking = "Nro Envío"
	ColOrder    = "Orden Retiro"
	ColStatus   = "Estado"

	StatusProcessed   = "processed"
	statusErrorPrefix = "error: "
)
