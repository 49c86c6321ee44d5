package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andrewpaige1/stakemap/service"
	"github.com/andrewpaige1/stakemap/utils"
)

const maxImportBytes = 10 << 20

// GET /api/export?format=json|yaml
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := h.data.Export(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := service.EncodeExport(doc, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("stakemap-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// POST /api/import?strategy=keep-existing|overwrite|newest
// The body is an export document in JSON or YAML.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	strategy, err := service.ParseMergeStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "import document too large")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "Error reading request body")
		return
	}
	doc, err := service.DecodeExport(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.data.Import(r.Context(), principal(r), doc, strategy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

// DELETE /api/data
func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.data.Clear(r.Context(), principal(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
