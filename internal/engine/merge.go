package engine

// merge.go folds per-unit outcomes back into the row table and builds the
// batch aggregate. Merging is deterministic: the same table and outcome map
// always produce a byte-identical output table.

import (
	"strconv"
	"strings"
)

// Merge produces the annotated output table and the BatchResult for a run.
//
// Every row of a successful unit receives the unit's first tracking number,
// its pickup order, and the "processed" status. Every row of a failed unit
// receives "error: <message>" with the tracking and order cells left empty.
func Merge(t Table, rows []Row, outcomes map[int64]UnitOutcome) *BatchResult {
	idx := MakeHeaderIndex(t.Headers)

	out := Table{
		Headers: append(append([]string(nil), t.Headers...), ColTracking, ColOrder, ColStatus),
		Rows:    make([][]string, 0, len(rows)),
	}

	for _, row := range rows {
		cells := renderRow(t, idx, row)

		var tracking, order, status string
		if o, ok := outcomes[row.Remito]; ok {
			if o.Failed() {
				status = statusErrorPrefix + o.Err.Error()
			} else {
				tracking = o.TrackingNumbers[0]
				order = o.PickupOrder
				status = StatusProcessed
			}
		}
		out.Rows = append(out.Rows, append(cells, tracking, order, status))
	}

	res := &BatchResult{
		Outcomes: outcomes,
		Output:   out,
	}
	for _, unit := range Group(rows) {
		res.UnitOrder = append(res.UnitOrder, unit.Remito)
		o, ok := outcomes[unit.Remito]
		if !ok {
			continue
		}
		if o.Failed() {
			res.Failed++
			continue
		}
		res.Processed++
		res.TrackingNumbers = append(res.TrackingNumbers, o.TrackingNumbers...)
		res.PickupOrders = append(res.PickupOrders, o.PickupOrder)
	}
	res.Success = len(res.TrackingNumbers) > 0

	return res
}

// renderRow rebuilds one output row in the input's column order, writing
// the normalized value for schema columns and passing any extra columns
// through untouched.
func renderRow(t Table, idx HeaderIndex, row Row) []string {
	cells := make([]string, len(t.Headers))

	// Carry over original cells for columns outside the schema.
	if row.Line-2 >= 0 && row.Line-2 < len(t.Rows) {
		src := t.Rows[row.Line-2]
		for i := range cells {
			if i < len(src) {
				cells[i] = src[i]
			}
		}
	}

	set := func(name, value string) {
		if pos, ok := idx[strings.ToLower(name)]; ok && pos < len(cells) {
			cells[pos] = value
		}
	}
	set(ColRemito, strconv.FormatInt(row.Remito, 10))
	set(ColName, row.Name)
	set(ColStreet, row.Street)
	set(ColStreetNum, strconv.FormatInt(row.StreetNumber, 10))
	set(ColLocality, row.Locality)
	set(ColProvince, row.Province)
	set(ColPostal, strconv.FormatInt(row.PostalCode, 10))
	set(ColPhone, row.Phone)
	set(ColEmail, row.Email)
	set(ColReference, row.Reference)
	set(ColPackages, strconv.FormatInt(row.PackageCount, 10))

	return cells
}
