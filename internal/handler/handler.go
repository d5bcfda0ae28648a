package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sheet-agent/internal/agent"
	"sheet-agent/internal/standardize"
	"sheet-agent/internal/workbook"
)

const maxMultipartMemory = 32 << 20

type Handler struct {
	svc *workbook.Service
}

func New(svc *workbook.Service) *Handler { return &Handler{svc: svc} }

type sheetView struct {
	Index   int                 `json:"index"`
	Name    string              `json:"name"`
	Columns []string            `json:"columns"`
	Rows    int                 `json:"rows"`
	Renames standardize.Mapping `json:"renames"`
	Preview [][]string          `json:"preview,omitempty"`
}

type workbookView struct {
	ID       string      `json:"id"`
	Filename string      `json:"filename"`
	Prefix   string      `json:"prefix"`
	Sheets   []sheetView `json:"sheets"`
}

func view(wb workbook.Workbook, preview int) workbookView {
	v := workbookView{ID: wb.ID, Filename: wb.Filename, Prefix: wb.Prefix, Sheets: make([]sheetView, 0, len(wb.Sheets))}
	for _, s := range wb.Sheets {
		sv := sheetView{Index: s.Index, Name: s.Name, Columns: s.Table.Columns, Rows: s.Table.Len(), Renames: s.Mapping}
		if sv.Columns == nil {
			sv.Columns = []string{}
		}
		if sv.Renames == nil {
			sv.Renames = standardize.Mapping{}
		}
		if preview > 0 {
			rows := s.Table.Rows
			if len(rows) > preview {
				rows = rows[:preview]
			}
			sv.Preview = rows
		}
		v.Sheets = append(v.Sheets, sv)
	}
	return v
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload: POST /workbooks, multipart-поле "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := zerolog.Ctx(r.Context())

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file: "+err.Error())
		return
	}
	defer file.Close()

	wb, err := h.svc.Load(file, header.Filename)
	if err != nil {
		log.Warn().Err(err).Str("file", header.Filename).Msg("workbook load failed")
		writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"Error loading or processing file: %v. If the file is password-protected, please remove the protection.", err))
		return
	}

	log.Info().
		Str("id", wb.ID).
		Int("sheets", len(wb.Sheets)).
		Dur("elapsed", time.Since(start)).
		Msg("upload done")
	writeJSON(w, http.StatusCreated, view(wb, 0))
}

// Get: GET /workbooks/{id}?preview=N
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	wb, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view(wb, atoi(r.URL.Query().Get("preview"), 0)))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.svc.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type queryRequest struct {
	Query string `json:"query"`
}

// statusClientClosed: nginx-код "клиент закрыл соединение".
const statusClientClosed = 499

// Query: POST /workbooks/{id}/query: JSON {"query": "..."} или form-поле query.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := zerolog.Ctx(r.Context())
	id := chi.URLParam(r, "id")

	var req queryRequest
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
	} else {
		req.Query = r.FormValue("query")
	}

	ans, err := h.svc.Ask(r.Context(), id, req.Query)
	switch {
	case err == nil:
	case errors.Is(err, workbook.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, agent.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, workbook.ErrAgentDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, agent.ErrStepLimit):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "steps": ans.Steps})
		return
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// клиент ушёл, отвечать некому
		log.Info().Str("id", id).Int("steps", len(ans.Steps)).Msg("query cancelled by client")
		writeError(w, statusClientClosed, "request cancelled")
		return
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("id", id).Int("steps", len(ans.Steps)).Msg("agent timed out")
		writeError(w, http.StatusGatewayTimeout, "Error processing query: timed out")
		return
	default:
		log.Error().Err(err).Str("id", id).Msg("agent failed")
		writeError(w, http.StatusBadGateway, "Error processing query: "+err.Error())
		return
	}

	log.Info().
		Str("id", id).
		Int("steps", len(ans.Steps)).
		Dur("elapsed", time.Since(start)).
		Msg("query done")
	writeJSON(w, http.StatusOK, ans)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
