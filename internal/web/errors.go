package web

import (
	"errors"
	"net/http"

	"github.com/ciclogistica/retiros/internal/engine"
	"github.com/ciclogistica/retiros/internal/logging"
)

// respondError maps pipeline errors to HTTP status codes. Batch-fatal
// input problems come back as 4xx so the operator can fix the sheet;
// carrier and transport failures surface as upstream errors.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	var (
		schemaErr     *engine.SchemaError
		validationErr *engine.ValidationError
		configErr     *engine.ConfigError
		transportErr  *engine.TransportError
		carrierErr    *engine.CarrierError
	)

	switch {
	case errors.Is(err, engine.ErrTooManyBatches):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &schemaErr), errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &configErr):
		logger.Error("configuration error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &transportErr):
		logger.Error("carrier unreachable", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &carrierErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
