package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ipoole/tabular/internal/logging"
	"github.com/ipoole/tabular/internal/store"
	"github.com/ipoole/tabular/internal/tabular"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleImport accepts a delimited text file, parses it into records
// and persists it as a new dataset. The file arrives either as a
// multipart form field named "file" or as the raw request body (with an
// optional ?name= for the dataset name).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	name, body, err := importSource(r)
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(ctx, w, status, err.Error())
		return
	}
	defer body.Close()

	table, err := tabular.Read(body, name)
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(ctx, w, status, fmt.Sprintf("parse table: %v", err))
		return
	}

	if table.Len() > s.cfg.Import.MaxRecords {
		writeError(ctx, w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("dataset has %d records, limit is %d", table.Len(), s.cfg.Import.MaxRecords))
		return
	}

	ds, err := s.datasets.SaveTable(ctx, name, table)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("save dataset: %v", err))
		return
	}

	logging.FromContext(ctx).Info("dataset imported",
		"dataset_id", ds.ID,
		"name", ds.Name,
		"fields", len(ds.FieldNames),
		"rows", ds.RowCount,
	)
	writeJSON(w, http.StatusCreated, ds)
}

// importSource resolves the uploaded file and dataset name from the
// request, handling both multipart and raw-body uploads.
func importSource(r *http.Request) (string, io.ReadCloser, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", nil, fmt.Errorf("parse multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("missing form file %q: %w", "file", err)
		}
		name := header.Filename
		if n := r.FormValue("name"); n != "" {
			name = n
		}
		return name, file, nil
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	return name, r.Body, nil
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	datasets, err := s.datasets.ListDatasets(ctx)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("list datasets: %v", err))
		return
	}
	if datasets == nil {
		datasets = []store.Dataset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": datasets})
}

// datasetRecord is one record rendered as a name/value object, in the
// schema's field order on the wire.
type datasetRecord map[string]string

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := datasetID(w, r)
	if !ok {
		return
	}

	table, err := s.datasets.LoadTable(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("load dataset: %v", err))
		return
	}

	records := make([]datasetRecord, 0, table.Len())
	for _, rec := range table.Records {
		obj := make(datasetRecord, table.Schema.Len())
		for i, n := range table.Schema.Names() {
			obj[n] = rec.At(i)
		}
		records = append(records, obj)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":       table.Name,
		"fieldNames": table.Schema.Names(),
		"records":    records,
	})
}

func (s *Server) handleDatasetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := datasetID(w, r)
	if !ok {
		return
	}

	column := r.URL.Query().Get("column")
	if column == "" {
		writeError(ctx, w, http.StatusBadRequest, "missing required query parameter: column")
		return
	}

	agg, err := s.datasets.ColumnStats(ctx, id, column)
	if errors.Is(err, store.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		// Unknown column or non-numeric values: the caller's input
		// problem, not the server's.
		writeError(ctx, w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"column": agg.Column,
		"sum":    agg.Sum,
		"avg":    agg.Avg,
		"min":    agg.Min,
		"max":    agg.Max,
		"count":  agg.Count,
	})
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := datasetID(w, r)
	if !ok {
		return
	}

	err := s.datasets.DeleteDataset(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, fmt.Sprintf("delete dataset: %v", err))
		return
	}

	logging.FromContext(ctx).Info("dataset deleted", "dataset_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// datasetID parses the {datasetID} URL parameter, writing a 400 on
// failure.
func datasetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "datasetID")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, fmt.Sprintf("invalid dataset id %q", raw))
		return uuid.UUID{}, false
	}
	return id, true
}
