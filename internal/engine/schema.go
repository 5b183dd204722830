package engine

// schema.go fixes the input sheet contract: the required columns, their
// semantic kinds, and header matching. Header lookup is case-insensitive so
// operator files survive casing drift ("CP" vs "cp") without breaking.

import "strings"

// ColumnKind is the semantic type of a required column.
type ColumnKind int

const (
	// KindText columns are trimmed and upper-cased.
	KindText ColumnKind = iota
	// KindNumeric columns are coerced to non-negative integers.
	KindNumeric
	// KindReference is free text with upstream placeholder cleanup.
	KindReference
	// KindEmail is trimmed but keeps its original case.
	KindEmail
)

// ColumnSpec defines one required column of the pickup sheet.
type ColumnSpec struct {
	Name string
	Kind ColumnKind
}

// Required column names. These are the operator-facing sheet contract and
// must match the uploaded file's headers (case-insensitive).
const (
	ColRemito    = "obs"
	ColName      = "Nombre"
	ColStreet    = "Direccion"
	ColStreetNum = "Numero"
	ColLocality  = "localidad"
	ColProvince  = "provincia"
	ColPostal    = "cp"
	ColPhone     = "telefono"
	ColEmail     = "mail"
	ColReference = "Referencia"
	ColPackages  = "cantidad"
)

// Schema lists every required column of the pickup sheet in file order.
var Schema = []ColumnSpec{
	{ColRemito, KindNumeric},
	{ColName, KindText},
	{ColStreet, KindText},
	{ColStreetNum, KindNumeric},
	{ColLocality, KindText},
	{ColProvince, KindText},
	{ColPostal, KindNumeric},
	{ColPhone, KindText},
	{ColEmail, KindEmail},
	{ColReference, KindReference},
	{ColPackages, KindNumeric},
}

// HeaderIndex maps lower-cased column names to their position in the sheet.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
// Later duplicates do not overwrite earlier columns.
func MakeHeaderIndex(headers []string) HeaderIndex {
	idx := make(HeaderIndex, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// ValidateHeaders checks that every required column exists and returns the
// header index, or a SchemaError listing all missing names.
func ValidateHeaders(headers []string, specs []ColumnSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)

	var missing []string
	for _, spec := range specs {
		if _, ok := idx[strings.ToLower(spec.Name)]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return idx, nil
}
