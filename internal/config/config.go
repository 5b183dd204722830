// Package config provides centralized configuration management for the
// pickup batch service. It loads settings from environment variables with
// sensible defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	OCA     OCAConfig
	Origin  OriginConfig
	Batch   BatchConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request bodies.
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout bounds response writes. Batch processing happens inside
	// the request, so this must cover a whole run (default: 10m).
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKeys is an optional comma-separated list of accepted X-API-Key
	// values. Empty disables authentication.
	APIKeys []string `env:"SERVER_API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Real-IP/X-Forwarded-For headers
	// are honored.
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`
}

// OCAConfig holds credentials and endpoints for the carrier web service.
type OCAConfig struct {
	// User is the OCA ePak account user (required).
	User string `env:"OCA_USR" required:"true"`

	// Password is the OCA ePak account password (required).
	Password string `env:"OCA_PSW" required:"true"`

	SubmitURL   string `env:"OCA_SUBMIT_URL" default:"http://webservice.oca.com.ar/ePak_tracking/Oep_TrackEPak.asmx/IngresoORMultiplesRetiros"`
	FacilityURL string `env:"OCA_FACILITY_URL" default:"http://webservice.oca.com.ar/epak_tracking/Oep_TrackEPak.asmx/GetCentrosImposicionConServiciosByCP"`
	LabelURL    string `env:"OCA_LABEL_URL" default:"http://webservice.oca.com.ar/ePak_tracking/Oep_TrackEPak.asmx/GetPdfDeEtiquetasPorOrdenesDeRetiro"`

	// SubmitTimeout bounds one registration attempt (default: 45s).
	SubmitTimeout time.Duration `env:"OCA_SUBMIT_TIMEOUT" default:"45s"`

	// LookupTimeout bounds one facility lookup (default: 10s).
	LookupTimeout time.Duration `env:"OCA_LOOKUP_TIMEOUT" default:"10s"`

	// OperativeID is the fixed pickup operating-mode code.
	OperativeID string `env:"OCA_OPERATIVE_ID" default:"441846"`
}

// OriginConfig is the organization's own pickup/return address block,
// stamped into every envelope as the destination.
type OriginConfig struct {
	Name          string `env:"ORIGIN_NAME" default:"CIC"`
	Surname       string `env:"ORIGIN_SURNAME" default:"Logistica"`
	Street        string `env:"ORIGIN_STREET" default:"Septiembre"`
	Number        string `env:"ORIGIN_NUMBER" default:"151"`
	PostalCode    string `env:"ORIGIN_CP" default:"1625"`
	Locality      string `env:"ORIGIN_LOCALITY" default:"Escobar"`
	Province      string `env:"ORIGIN_PROVINCE" default:"BUENOS AIRES"`
	Phone         string `env:"ORIGIN_PHONE"`
	Email         string `env:"ORIGIN_EMAIL" required:"true"`
	TimeSlotID    string `env:"ORIGIN_TIME_SLOT" default:"1"`
	CostCenter    string `env:"ORIGIN_COST_CENTER" default:"0"`
	AccountNumber string `env:"ORIGIN_ACCOUNT" required:"true"`
}

// BatchConfig holds batch-processing settings.
type BatchConfig struct {
	// Workers bounds parallel unit registrations inside one batch
	// (default: 1, sequential).
	Workers int `env:"BATCH_WORKERS" default:"1"`

	// CoercePolicy is "zero" (coerce unparsable numerics to 0) or
	// "strict" (reject them). The historical default is fail-open.
	CoercePolicy string `env:"BATCH_COERCE_POLICY" default:"zero"`

	// MaxConcurrent limits simultaneous batch runs per process (default: 2).
	MaxConcurrent int `env:"BATCH_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a run waits for a processing slot.
	MaxWaitTime time.Duration `env:"BATCH_MAX_WAIT_TIME" default:"30s"`

	// MaxFileSize is the upload size limit in bytes (default: 10MB).
	MaxFileSize int64 `env:"BATCH_MAX_FILE_SIZE" default:"10485760"`

	// ResultTTL is how long finished batch results stay downloadable.
	ResultTTL time.Duration `env:"BATCH_RESULT_TTL" default:"1h"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
