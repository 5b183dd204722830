package engine

// normalize.go turns a raw parsed sheet into []Row.
//
// Numeric coercion is policy-driven (see CoercePolicy). The historical
// behavior of this pipeline is fail-open: a cell that cannot be parsed as a
// number silently becomes 0. That masks bad input behind a valid-looking
// zero, so the policy is explicit and hosts can opt into fail-closed.

import (
	"fmt"
	"strconv"
	"strings"
)

// CoercePolicy controls how unparsable numeric cells are handled.
type CoercePolicy int

const (
	// CoerceZero replaces blank or unparsable numeric cells with 0.
	CoerceZero CoercePolicy = iota
	// CoerceStrict rejects unparsable numeric cells with a ValidationError.
	CoerceStrict
)

// ParseCoercePolicy maps a config string to a policy. Unknown strings fall
// back to CoerceZero.
func ParseCoercePolicy(s string) CoercePolicy {
	if strings.EqualFold(strings.TrimSpace(s), "strict") {
		return CoerceStrict
	}
	return CoerceZero
}

// nameSeparator must appear in every addressee name ("Apellido, Nombre").
const nameSeparator = ","

// referencePlaceholders are literal "missing value" tokens produced by
// upstream spreadsheet tooling; they normalize to the empty string.
var referencePlaceholders = map[string]bool{
	"NAN":  true,
	"NONE": true,
	"<NA>": true,
}

// Normalize validates the table against the fixed schema and produces one
// Row per data row. It is pure: the input table is never mutated.
//
// Failure modes: a SchemaError listing every missing column, or a
// ValidationError for unparsable numerics (strict policy only) or addressee
// names missing the "Apellido, Nombre" separator. Name violations across
// the whole table are collected into a single error listing every offending
// sheet line.
func Normalize(t Table, policy CoercePolicy) ([]Row, error) {
	idx, err := ValidateHeaders(t.Headers, Schema)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(t.Rows))
	var badNameLines []int

	for i, cells := range t.Rows {
		line := i + 2 // 1-based, header is line 1

		get := func(name string) string {
			pos := idx[strings.ToLower(name)]
			if pos >= len(cells) {
				return ""
			}
			return cells[pos]
		}
		num := func(name string) (int64, error) {
			n, ok := parseNumeric(get(name))
			if !ok {
				if policy == CoerceStrict {
					return 0, &ValidationError{
						Column:  name,
						Lines:   []int{line},
						Message: fmt.Sprintf("invalid numeric value %q", strings.TrimSpace(get(name))),
					}
				}
				return 0, nil
			}
			return n, nil
		}

		row := Row{
			Name:      upperText(get(ColName)),
			Street:    upperText(get(ColStreet)),
			Locality:  upperText(get(ColLocality)),
			Province:  upperText(get(ColProvince)),
			Phone:     upperText(get(ColPhone)),
			Email:     strings.TrimSpace(get(ColEmail)),
			Reference: cleanReference(get(ColReference)),
			Line:      line,
		}
		if row.Remito, err = num(ColRemito); err != nil {
			return nil, err
		}
		if row.StreetNumber, err = num(ColStreetNum); err != nil {
			return nil, err
		}
		if row.PostalCode, err = num(ColPostal); err != nil {
			return nil, err
		}
		if row.PackageCount, err = num(ColPackages); err != nil {
			return nil, err
		}

		if !strings.Contains(row.Name, nameSeparator) {
			badNameLines = append(badNameLines, line)
		}

		rows = append(rows, row)
	}

	if len(badNameLines) > 0 {
		return nil, &ValidationError{
			Column:  ColName,
			Lines:   badNameLines,
			Message: "invalid addressee name, use 'Apellido, Nombre'",
		}
	}

	return rows, nil
}

// parseNumeric parses a cell as a non-negative integer. It tolerates the
// usual spreadsheet artifacts: surrounding whitespace and integral floats
// ("500.0"). Negative values are not valid remito/address/count data.
func parseNumeric(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int64(f)
		if f < 0 || float64(n) != f {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func upperText(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// cleanReference trims, upper-cases, and drops upstream missing-value
// placeholders from the free-text reference column.
func cleanReference(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if referencePlaceholders[s] {
		return ""
	}
	return s
}
