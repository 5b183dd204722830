package engine

// Group partitions rows into shipment units by remito number. Units come
// out in the order their remito first appears in the input, and each unit
// keeps its rows in input order. An empty input yields an empty result.
func Group(rows []Row) []Unit {
	byRemito := make(map[int64]int, len(rows))
	units := make([]Unit, 0, len(rows))

	for _, row := range rows {
		pos, ok := byRemito[row.Remito]
		if !ok {
			pos = len(units)
			byRemito[row.Remito] = pos
			units = append(units, Unit{Remito: row.Remito})
		}
		units[pos].Rows = append(units[pos].Rows, row)
	}

	return units
}
