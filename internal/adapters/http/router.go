package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
	"github.com/avanleeuwen/invoice-pipeline/internal/core/ports"
	"github.com/avanleeuwen/invoice-pipeline/internal/observability/metrics"
)

const maxUploadBytes = 20 << 20

// importResponse flattens the pipeline result next to the success flag, so
// callers can tell "partially extracted" (success with null sections) apart
// from "nothing usable" (success false).
type importResponse struct {
	Success bool `json:"success"`
	*domain.PipelineResult
}

type Router struct {
	importer  ports.InvoiceImporter
	enqueuer  ports.ImportEnqueuer
	extractor ports.TextExtractor
	storage   ports.ObjectStorage
	metrics   *metrics.HTTPServerMetrics
	service   string
	log       *slog.Logger
}

func NewRouter(
	importer ports.InvoiceImporter,
	enqueuer ports.ImportEnqueuer,
	extractor ports.TextExtractor,
	storage ports.ObjectStorage,
	m *metrics.HTTPServerMetrics,
	service string,
	log *slog.Logger,
) *Router {
	return &Router{
		importer:  importer,
		enqueuer:  enqueuer,
		extractor: extractor,
		storage:   storage,
		metrics:   m,
		service:   service,
		log:       log,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/imports", rt.importSync)
	mux.HandleFunc("POST /v1/imports/upload", rt.importUpload)
	mux.HandleFunc("POST /v1/imports/queue", rt.importQueue)
	mux.HandleFunc("GET /v1/imports/{id}", rt.getImportJob)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) importSync(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}

	result, err := rt.importer.Import(r.Context(), req)
	if err != nil {
		rt.recordImport("sync", "error")
		rt.writeError(w, r, err)
		return
	}

	rt.recordImport("sync", "ok")
	rt.recordPipelineOutcome(result)
	writeJSON(w, http.StatusOK, importResponse{Success: true, PipelineResult: result})
}

func (rt *Router) importUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse multipart", err))
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}

	text, err := rt.extractor.Extract(r.Context(), data)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	if rt.storage != nil {
		key := uuid.NewString() + strings.ToLower(filepath.Ext(fileHeader.Filename))
		if err := rt.storage.Save(r.Context(), key, bytes.NewReader(data)); err != nil {
			rt.log.Warn("archive upload failed", "file", fileHeader.Filename, "error", err)
		}
	}

	req := domain.ImportRequest{
		PDFText:     text,
		FileName:    fileHeader.Filename,
		CompanyID:   r.FormValue("company_id"),
		UserID:      r.FormValue("user_id"),
		PaymentDate: r.FormValue("payment_date"),
	}

	result, err := rt.importer.Import(r.Context(), req)
	if err != nil {
		rt.recordImport("upload", "error")
		rt.writeError(w, r, err)
		return
	}

	rt.recordImport("upload", "ok")
	rt.recordPipelineOutcome(result)
	writeJSON(w, http.StatusOK, importResponse{Success: true, PipelineResult: result})
}

func (rt *Router) importQueue(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}

	job, err := rt.enqueuer.Enqueue(r.Context(), req)
	if err != nil {
		rt.recordImport("queued", "error")
		rt.writeError(w, r, err)
		return
	}

	rt.recordImport("queued", "accepted")
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getImportJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "get job", errors.New("job id is required")))
		return
	}

	job, err := rt.enqueuer.GetJob(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) recordImport(mode, status string) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordImport(rt.service, mode, status)
}

func (rt *Router) recordPipelineOutcome(result *domain.PipelineResult) {
	if rt.metrics == nil || result == nil {
		return
	}
	if result.VendorMatch != nil {
		rt.metrics.RecordVendorMatch(rt.service, string(result.VendorMatch.MatchType))
	}
	if result.CurrencyConversion != nil {
		rt.metrics.RecordRateSource(rt.service, string(result.CurrencyConversion.Source))
	}
	if result.Extraction != nil && result.Extraction.Confidence.RequiresReview {
		rt.metrics.RecordReviewFlag(rt.service)
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.log.Error("request failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	} else {
		rt.log.Warn("request rejected", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
