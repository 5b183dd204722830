package oca

// envelope.go builds the XML submission document for one shipment unit.
//
// The attribute set and nesting below are OCA's fixed contract; the struct
// field order matters because encoding/xml emits attributes in declaration
// order. Every envelope carries exactly one origen, one envio, one
// destinatario, and one paquete regardless of how many rows compose the
// unit.

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/ciclogistica/retiros/internal/engine"
)

// Fixed package descriptor defaults (cm / kg / declared value / count).
const (
	packageHeight = "30.00"
	packageWidth  = "25.00"
	packageLength = "20.00"
	packageWeight = "0.20"
	packageValue  = "0.00"
	packageCount  = "1"
)

const dateLayout = "20060102"

type envelopeDoc struct {
	XMLName xml.Name       `xml:"ROWS"`
	Header  envelopeHeader `xml:"cabecera"`
	Origins envelopeOrigins `xml:"origenes"`
}

type envelopeHeader struct {
	Version string `xml:"ver,attr"`
	Account string `xml:"nrocuenta,attr"`
}

type envelopeOrigins struct {
	Origin envelopeOrigin `xml:"origen"`
}

type envelopeOrigin struct {
	Street     string `xml:"calle,attr"`
	Number     string `xml:"nro,attr"`
	PostalCode string `xml:"cp,attr"`
	Locality   string `xml:"localidad,attr"`
	Province   string `xml:"provincia,attr"`
	Email      string `xml:"email,attr"`
	TimeSlot   string `xml:"idfranjahoraria,attr"`
	CostCenter string `xml:"centrocosto,attr"`
	Facility   string `xml:"idcentroimposicionorigen,attr"`
	Date       string `xml:"fecha,attr"`
	Floor      string `xml:"piso,attr"`
	Apartment  string `xml:"depto,attr"`
	Contact    string `xml:"contacto,attr"`
	Requester  string `xml:"solicitante,attr"`
	Remarks    string `xml:"observaciones,attr"`

	Shipments envelopeShipments `xml:"envios"`
}

type envelopeShipments struct {
	Shipment envelopeShipment `xml:"envio"`
}

type envelopeShipment struct {
	OperativeID string `xml:"idoperativa,attr"`
	Remito      string `xml:"nroremito,attr"`

	Recipient envelopeRecipient `xml:"destinatario"`
	Packages  envelopePackages  `xml:"paquetes"`
}

type envelopeRecipient struct {
	Surname    string `xml:"apellido,attr"`
	Name       string `xml:"nombre,attr"`
	Street     string `xml:"calle,attr"`
	Number     string `xml:"nro,attr"`
	Locality   string `xml:"localidad,attr"`
	Province   string `xml:"provincia,attr"`
	PostalCode string `xml:"cp,attr"`
	Phone      string `xml:"telefono,attr"`
	Email      string `xml:"email,attr"`
	Remarks    string `xml:"observaciones,attr"`
	Floor      string `xml:"piso,attr"`
	Apartment  string `xml:"depto,attr"`
	FacilityID string `xml:"idci,attr"`
	Mobile     string `xml:"celular,attr"`
}

type envelopePackages struct {
	Package envelopePackage `xml:"paquete"`
}

type envelopePackage struct {
	Height string `xml:"alto,attr"`
	Width  string `xml:"ancho,attr"`
	Length string `xml:"largo,attr"`
	Weight string `xml:"peso,attr"`
	Value  string `xml:"valor,attr"`
	Count  string `xml:"cant,attr"`
}

// BuildEnvelope serializes the submission document for one unit.
//
// The pickup address comes from the unit's representative row; the
// recipient is always the configured origin (return) address. facility is
// the resolved centro de imposición for the unit's postal code; now stamps
// the scheduling date. The returned bytes are ISO-8859-1 with an XML
// declaration.
func BuildEnvelope(unit engine.Unit, cfg Config, facility string, now time.Time) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if facility == "" {
		facility = DefaultFacilityID
	}

	rep := unit.Representative()
	org := cfg.Origin

	doc := envelopeDoc{
		Header: envelopeHeader{Version: "2.0", Account: org.AccountNumber},
		Origins: envelopeOrigins{
			Origin: envelopeOrigin{
				Street:     upper(rep.Street),
				Number:     strconv.FormatInt(rep.StreetNumber, 10),
				PostalCode: strconv.FormatInt(rep.PostalCode, 10),
				Locality:   upper(rep.Locality),
				Province:   upper(rep.Province),
				Email:      strings.TrimSpace(rep.Email),
				TimeSlot:   org.TimeSlotID,
				CostCenter: org.CostCenter,
				Facility:   facility,
				Date:       now.Format(dateLayout),
				Shipments: envelopeShipments{
					Shipment: envelopeShipment{
						OperativeID: cfg.OperativeID,
						Remito:      strconv.FormatInt(unit.Remito, 10),
						Recipient: envelopeRecipient{
							Surname:    upper(org.Surname),
							Name:       upper(org.Name),
							Street:     upper(org.Street),
							Number:     org.Number,
							Locality:   upper(org.Locality),
							Province:   upper(org.Province),
							PostalCode: org.PostalCode,
							Phone:      org.Phone,
							Email:      org.Email,
							FacilityID: DefaultFacilityID,
						},
						Packages: envelopePackages{
							Package: envelopePackage{
								Height: packageHeight,
								Width:  packageWidth,
								Length: packageLength,
								Weight: packageWeight,
								Value:  packageValue,
								Count:  packageCount,
							},
						},
					},
				},
			},
		},
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope for remito %d: %w", unit.Remito, err)
	}

	buf := append([]byte(`<?xml version="1.0" encoding="iso-8859-1"?>`+"\n"), body...)
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes(buf)
	if err != nil {
		return nil, fmt.Errorf("encode envelope for remito %d to ISO-8859-1: %w", unit.Remito, err)
	}
	return encoded, nil
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
