// Package oca adapts the batch engine to OCA's ePak web service: it builds
// the per-unit XML envelope, submits it, and interprets the diffgram reply.
// It also implements the facility (centro de imposición) lookup and the PDF
// label retrieval endpoints.
//
// The envelope and reply formats are a fixed wire contract with the
// carrier; attribute names, nesting, and the ISO-8859-1 encoding must be
// reproduced verbatim.
package oca

import (
	"context"
	"strings"
	"time"

	"github.com/ciclogistica/retiros/internal/engine"
)

// Origin is the organization's own pickup/return address block. It fills
// the envelope's destinatario element: registered pickups travel back to
// this address.
type Origin struct {
	Name          string // nombre
	Surname       string // apellido
	Street        string
	Number        string
	PostalCode    string
	Locality      string
	Province      string
	Phone         string
	Email         string
	TimeSlotID    string // idfranjahoraria
	CostCenter    string // centrocosto
	AccountNumber string // nrocuenta
}

// Config holds everything the OCA client needs: credentials, endpoints,
// timeouts, and the static origin block.
type Config struct {
	User     string
	Password string

	SubmitURL   string // IngresoORMultiplesRetiros
	FacilityURL string // GetCentrosImposicionConServiciosByCP
	LabelURL    string // GetPdfDeEtiquetasPorOrdenesDeRetiro

	SubmitTimeout time.Duration
	LookupTimeout time.Duration

	// OperativeID is the fixed operating-mode code stamped on every
	// shipment record.
	OperativeID string

	Origin Origin
}

// Validate checks that the config is usable. Every failure is an
// engine.ConfigError, which is batch-fatal.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.User) == "" || strings.TrimSpace(c.Password) == "":
		return &engine.ConfigError{Reason: "OCA credentials are not configured"}
	case c.SubmitURL == "" || c.FacilityURL == "":
		return &engine.ConfigError{Reason: "OCA endpoints are not configured"}
	case c.OperativeID == "":
		return &engine.ConfigError{Reason: "OCA operative id is not configured"}
	case c.Origin == Origin{}:
		return &engine.ConfigError{Reason: "origin address block is not configured"}
	case c.Origin.AccountNumber == "":
		return &engine.ConfigError{Reason: "origin account number is not configured"}
	}
	return nil
}

// FacilityResolver resolves a carrier facility id from a postal code.
// Implementations never fail the caller: any lookup problem degrades to the
// safe default "0".
type FacilityResolver interface {
	FacilityID(ctx context.Context, postalCode string) string
}

// DefaultFacilityID is the safe fallback when a facility lookup fails.
const DefaultFacilityID = "0"
