package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/domain"
)

// Handler exposes the import workflow to a thin request layer. Upload limits
// and session handling are enforced upstream.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the import routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /import/preview", h.handleUpload)
	mux.HandleFunc("GET /import/preview/{id}", h.handleDetail)
	mux.HandleFunc("POST /import/preview/{id}/commit", h.handleCommit)
	mux.HandleFunc("POST /import/preview/{id}/extend", h.handleExtend)
	mux.HandleFunc("DELETE /import/preview/{id}", h.handleCancel)
	mux.HandleFunc("GET /import/preview/{id}/export", h.handleExport)
	mux.HandleFunc("GET /import/systems", h.handleSystems)
	mux.HandleFunc("GET /import/owners", h.handleOwners)
	mux.HandleFunc("GET /import/audit", h.handleAudit)
	mux.HandleFunc("GET /import/stats", h.handleStats)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, domain.NewError(domain.CodeValidationFailed, "invalid form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.NewError(domain.CodeValidationFailed, "file is required"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, domain.NewError(domain.CodeValidationFailed, "failed to read file"))
		return
	}

	req := UploadRequest{
		Payload:  payload,
		FileName: header.Filename,
		SystemID: strings.TrimSpace(r.FormValue("systemId")),
		Mode:     strings.TrimSpace(r.FormValue("mode")),
	}

	if raw := strings.TrimSpace(r.FormValue("ownerId")); raw != "" {
		ownerID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			writeError(w, domain.NewError(domain.CodeValidationFailed, "ownerId is not a valid id"))
			return
		}
		req.TargetOwnerID = ownerID
	}

	summary, err := h.service.UploadAndPreview(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.PreviewDetail(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

type commitPayload struct {
	ConfirmReassignments bool `json:"confirmReassignments"`
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var payload commitPayload
	if r.Body != nil {
		// An empty body means no confirmation.
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	result, err := h.service.CommitPreview(r.Context(), r.PathValue("id"), payload.ConfirmReassignments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ExtendPreview(r.PathValue("id"), 30*time.Minute); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"extended": true})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.service.CancelPreview(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.PreviewDetail(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	var buf bytes.Buffer
	switch format {
	case "", "csv":
		if err := WriteChangeSetCSV(&buf, bundle); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "changeset-"+bundle.ID+".csv"))
	case "xlsx":
		if err := WriteChangeSetXLSX(&buf, bundle); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "changeset-"+bundle.ID+".xlsx"))
	default:
		writeError(w, domain.NewError(domain.CodeUnsupportedFileFormat, "unsupported export format %q", format))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleSystems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Systems())
}

func (h *Handler) handleOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.service.Owners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, owners)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	entries, err := h.service.AuditTrail(r.Context(), strings.TrimSpace(query.Get("systemId")), strings.TrimSpace(query.Get("fileName")), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.StoreStats())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

type errorBody struct {
	Code           domain.ErrorCode `json:"code"`
	Message        string           `json:"message"`
	MissingColumns []string         `json:"missingColumns,omitempty"`
}

// writeError maps coded failures onto HTTP statuses. Only the code and the
// operator-safe message leave the process.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Code: domain.CodeInternal, Message: "internal error"}

	var coded *domain.Error
	if errors.As(err, &coded) {
		body.Code = coded.Code
		body.Message = coded.Message
		body.MissingColumns = coded.MissingColumns
	}

	status := http.StatusInternalServerError
	switch body.Code {
	case domain.CodeSystemNotFound, domain.CodePreviewNotFound:
		status = http.StatusNotFound
	case domain.CodePreviewExpired:
		status = http.StatusGone
	case domain.CodeUnsupportedFileFormat, domain.CodeEmptyFile, domain.CodeNoDataRows, domain.CodeMissingRequiredColumns:
		status = http.StatusBadRequest
	case domain.CodeValidationFailed:
		status = http.StatusUnprocessableEntity
	case domain.CodeReassignmentConflict:
		status = http.StatusConflict
	case domain.CodeConfigMissing, domain.CodeConfigMalformed:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, map[string]errorBody{"error": body})
}
