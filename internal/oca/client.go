package oca

// client.go is the HTTP side of the adapter: one form-encoded POST per
// operation against OCA's ASMX endpoints. Each submission is a single
// attempt under its own timeout; there is no retry policy, a failed attempt
// is terminal for that unit.

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/ciclogistica/retiros/internal/engine"
)

// maxReplySize caps how much of a carrier reply is read into memory.
const maxReplySize = 16 << 20

const (
	defaultSubmitTimeout = 45 * time.Second
	defaultLookupTimeout = 10 * time.Second
)

// Client talks to OCA's ePak web service. It implements engine.Carrier,
// engine.LabelFetcher, and FacilityResolver.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

// NewClient validates the configuration and returns a ready client.
// A validation failure is an engine.ConfigError and should abort startup.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		now:  time.Now,
	}, nil
}

// Register runs the full per-unit pipeline: facility lookup, envelope
// build, submission, reply interpretation. Implements engine.Carrier.
func (c *Client) Register(ctx context.Context, unit engine.Unit) ([]string, string, error) {
	postal := strconv.FormatInt(unit.Representative().PostalCode, 10)
	facility := c.FacilityID(ctx, postal)

	envelope, err := BuildEnvelope(unit, c.cfg, facility, c.now())
	if err != nil {
		return nil, "", err
	}

	raw, err := c.submit(ctx, envelope)
	if err != nil {
		return nil, "", err
	}
	return InterpretReply(unit, raw)
}

// submit posts one envelope to the registration endpoint and returns the
// raw reply bytes. The envelope bytes are ISO-8859-1; the form value is the
// decoded text, matching what the service expects in XML_Datos.
func (c *Client) submit(ctx context.Context, envelope []byte) ([]byte, error) {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(envelope)
	if err != nil {
		return nil, &engine.TransportError{Op: "decode envelope", Err: err}
	}

	form := url.Values{
		"usr":             {c.cfg.User},
		"psw":             {c.cfg.Password},
		"XML_Datos":       {string(text)},
		"ConfirmarRetiro": {"True"},
		"ArchivoCliente":  {""},
		"ArchivoProceso":  {""},
	}

	body, err := c.postForm(ctx, c.cfg.SubmitURL, form, c.cfg.SubmitTimeout)
	if err != nil {
		return nil, &engine.TransportError{Op: "submit pickup", Err: err}
	}
	return body, nil
}

// FacilityID resolves the centro de imposición for a postal code. It never
// fails the caller: any transport or parse problem is logged and degrades
// to DefaultFacilityID.
func (c *Client) FacilityID(ctx context.Context, postalCode string) string {
	form := url.Values{"CodigoPostal": {postalCode}}

	body, err := c.postForm(ctx, c.cfg.FacilityURL, form, c.cfg.LookupTimeout)
	if err != nil {
		slog.Warn("facility lookup failed, using default",
			"postal_code", postalCode,
			"error", err,
		)
		return DefaultFacilityID
	}

	id, err := firstElementText(body, "IdCentroImposicion")
	if err != nil || id == "" {
		slog.Warn("facility lookup returned no id, using default",
			"postal_code", postalCode,
			"error", err,
		)
		return DefaultFacilityID
	}
	return id
}

// labelReply is the XML wrapper around the base64 PDF payload.
type labelReply struct {
	Data string `xml:",chardata"`
}

// Label retrieves the PDF label sheet for one pickup order.
// Implements engine.LabelFetcher.
func (c *Client) Label(ctx context.Context, orderID string) ([]byte, error) {
	if c.cfg.LabelURL == "" {
		return nil, &engine.ConfigError{Reason: "label endpoint is not configured"}
	}

	form := url.Values{"IdOrdenRetiro": {orderID}}
	body, err := c.postForm(ctx, c.cfg.LabelURL, form, c.cfg.SubmitTimeout)
	if err != nil {
		return nil, &engine.TransportError{Op: "fetch label", Err: err}
	}

	var reply labelReply
	if err := decodeXML(body, &reply); err != nil {
		return nil, fmt.Errorf("unparsable label reply for order %s: %w", orderID, err)
	}

	data := strings.TrimSpace(reply.Data)
	if data == "" {
		return nil, fmt.Errorf("no label returned for order %s", orderID)
	}

	pdf, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid label payload for order %s: %w", orderID, err)
	}
	return pdf, nil
}

// postForm performs one form-encoded POST with a bounded timeout and
// returns the response body. Non-2xx statuses are errors.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, err
	}
	return body, nil
}
