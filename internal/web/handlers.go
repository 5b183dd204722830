package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ciclogistica/retiros/internal/engine"
	"github.com/ciclogistica/retiros/internal/logging"
	"github.com/ciclogistica/retiros/internal/sheet"
)

// unitResponse is one unit's outcome in the batch summary.
type unitResponse struct {
	Remito          int64    `json:"remito"`
	Status          string   `json:"status"`
	TrackingNumbers []string `json:"trackingNumbers,omitempty"`
	PickupOrder     string   `json:"pickupOrder,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// batchResponse is the JSON summary of one finished run.
type batchResponse struct {
	BatchID         string         `json:"batchId"`
	FileName        string         `json:"fileName"`
	Success         bool           `json:"success"`
	Units           int            `json:"units"`
	Processed       int            `json:"processed"`
	Failed          int            `json:"failed"`
	TrackingNumbers []string       `json:"trackingNumbers"`
	PickupOrders    []string       `json:"pickupOrders"`
	UnitResults     []unitResponse `json:"unitResults"`
	Failures        []unitResponse `json:"failures,omitempty"`
	FileURL         string         `json:"fileUrl"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateBatch accepts an xlsx upload, runs the whole pipeline, and
// responds with the batch summary. The annotated workbook stays
// downloadable under /api/batches/{batchID}/file until the result TTL
// expires.
func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	maxSize := s.cfg.Batch.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	table, err := sheet.Read(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable workbook: "+err.Error())
		return
	}

	batchID := uuid.NewString()
	logger := logging.ForBatch(ctx, batchID)
	logger.Info("batch started", "file", header.Filename, "rows", len(table.Rows))

	result, err := s.engine.Run(ctx, table, func(p engine.Progress) {
		logger.Info("unit processed",
			"remito", p.Remito,
			"current", p.Current,
			"total", p.Total,
		)
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	workbook, err := sheet.Write(result.Output)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stored := &storedBatch{
		ID:        batchID,
		FileName:  header.Filename,
		Result:    result,
		Workbook:  workbook,
		CreatedAt: time.Now().UTC(),
	}
	s.store.Put(stored)

	logger.Info("batch finished",
		"success", result.Success,
		"units", len(result.UnitOrder),
		"processed", result.Processed,
		"failed", result.Failed,
	)
	writeJSON(w, http.StatusOK, toBatchResponse(stored))
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	stored := s.store.Get(chi.URLParam(r, "batchID"))
	if stored == nil {
		writeError(w, http.StatusNotFound, "unknown or expired batch")
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(stored))
}

func (s *Server) handleDownloadBatch(w http.ResponseWriter, r *http.Request) {
	stored := s.store.Get(chi.URLParam(r, "batchID"))
	if stored == nil {
		writeError(w, http.StatusNotFound, "unknown or expired batch")
		return
	}

	name := "retiros_procesados_" + stored.CreatedAt.Format("20060102_1504") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(stored.Workbook)
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	pdf, err := s.labels.Label(r.Context(), orderID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="etiquetas_`+orderID+`.pdf"`)
	w.Write(pdf)
}

// toBatchResponse flattens a stored batch into its JSON form, with failed
// units repeated in a dedicated list for operator review.
func toBatchResponse(b *storedBatch) batchResponse {
	resp := batchResponse{
		BatchID:         b.ID,
		FileName:        b.FileName,
		Success:         b.Result.Success,
		Units:           len(b.Result.UnitOrder),
		Processed:       b.Result.Processed,
		Failed:          b.Result.Failed,
		TrackingNumbers: b.Result.TrackingNumbers,
		PickupOrders:    b.Result.PickupOrders,
		FileURL:         "/api/batches/" + b.ID + "/file",
		CreatedAt:       b.CreatedAt,
	}

	for _, remito := range b.Result.UnitOrder {
		o, ok := b.Result.Outcomes[remito]
		if !ok {
			continue
		}
		unit := unitResponse{Remito: remito}
		if o.Failed() {
			unit.Status = "error"
			unit.Error = o.Err.Error()
			resp.Failures = append(resp.Failures, unit)
		} else {
			unit.Status = engine.StatusProcessed
			unit.TrackingNumbers = o.TrackingNumbers
			unit.PickupOrder = o.PickupOrder
		}
		resp.UnitResults = append(resp.UnitResults, unit)
	}
	return resp
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
