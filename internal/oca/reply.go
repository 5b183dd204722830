package oca

// reply.go interprets the carrier's reply to one envelope submission.
//
// The reply is an ASMX DataSet: a diffgram element in the
// urn:schemas-microsoft-com:xml-diffgram-v1 namespace wrapping the result
// payload in the empty default namespace. Errors live under
// Errores/Error/Descripcion, detail records under
// Resultado/DetalleIngresos. Both paths are the carrier's contract and are
// matched exactly.

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/ciclogistica/retiros/internal/engine"
)

type replyDoc struct {
	Diffgram replyDiffgram `xml:"urn:schemas-microsoft-com:xml-diffgram-v1 diffgram"`
}

type replyDiffgram struct {
	Errors  []replyError  `xml:"Errores>Error"`
	Details []replyDetail `xml:"Resultado>DetalleIngresos"`
}

type replyError struct {
	Description string `xml:"Descripcion"`
}

type replyDetail struct {
	TrackingNumber string `xml:"NumeroEnvio"`
	PickupOrder    string `xml:"OrdenRetiro"`
}

// postalCodeMarker in an error description means the carrier rejected the
// unit's postal code; the interpreter appends a hint naming it.
const postalCodeMarker = "IdCodPostal"

// InterpretReply parses the raw reply for one unit and returns its tracking
// numbers and pickup order, or an engine.CarrierError.
//
// Tracking and order fields arrive decorated with non-digit characters
// ("EV-00123A") and are reduced to their digits; detail records whose
// tracking field has no digits are skipped. The pickup order is taken from
// the first detail record only.
func InterpretReply(unit engine.Unit, raw []byte) ([]string, string, error) {
	var doc replyDoc
	if err := decodeXML(raw, &doc); err != nil {
		return nil, "", &engine.CarrierError{
			Remito:  unit.Remito,
			Message: fmt.Sprintf("unparsable reply: %v", err),
		}
	}

	if len(doc.Diffgram.Errors) > 0 {
		descriptions := make([]string, 0, len(doc.Diffgram.Errors))
		for _, e := range doc.Diffgram.Errors {
			descriptions = append(descriptions, strings.TrimSpace(e.Description))
		}
		msg := strings.Join(descriptions, "; ")
		if strings.Contains(msg, postalCodeMarker) {
			msg += fmt.Sprintf(" - Verifique el código postal '%d' para remito %d",
				unit.Representative().PostalCode, unit.Remito)
		}
		return nil, "", &engine.CarrierError{Remito: unit.Remito, Message: msg}
	}

	var tracking []string
	for _, d := range doc.Diffgram.Details {
		if n := digitsOnly(d.TrackingNumber); n != "" {
			tracking = append(tracking, n)
		}
	}

	var order string
	if len(doc.Diffgram.Details) > 0 {
		order = digitsOnly(doc.Diffgram.Details[0].PickupOrder)
	}

	if len(tracking) == 0 || order == "" {
		return nil, "", &engine.CarrierError{
			Remito:  unit.Remito,
			Message: fmt.Sprintf("no tracking numbers or order number found for remito %d", unit.Remito),
		}
	}
	return tracking, order, nil
}

// decodeXML unmarshals carrier XML, honoring the ISO-8859-1 declaration the
// service emits.
func decodeXML(raw []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charsetReader
	return dec.Decode(v)
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8":
		return input, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported reply charset %q", charset)
}

// firstElementText scans carrier XML for the first element with the given
// local name (any namespace) and returns its trimmed character data, or ""
// when the element is absent.
func firstElementText(raw []byte, local string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charsetReader

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != local {
			continue
		}
		var text struct {
			Data string `xml:",chardata"`
		}
		if err := dec.DecodeElement(&text, &start); err != nil {
			return "", err
		}
		return strings.TrimSpace(text.Data), nil
	}
}

// digitsOnly strips every non-digit character; a field with no digits at
// all reduces to "" and counts as missing.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
