package server

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/dataset"
	"github.com/sells-group/htm-dashboard/internal/export"
	"github.com/sells-group/htm-dashboard/internal/model"
	"github.com/sells-group/htm-dashboard/internal/profile"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

func writeDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("write download", zap.String("file", filename), zap.Error(err))
	}
}

// pathParam returns the unescaped URL parameter and its extension, if it
// ends in one of exts.
func pathParam(r *http.Request, key string, exts ...string) (string, string) {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		v = u
	}
	for _, ext := range exts {
		if strings.HasSuffix(v, ext) {
			return strings.TrimSuffix(v, ext), ext
		}
	}
	return v, ""
}

// handleTable serves one profile table as JSON or, with a .csv suffix, as a
// download. ?cols=a,b projects it.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name, ext := pathParam(r, "name", ".csv")
	if !slices.Contains(model.ProfileTables, name) {
		writeError(w, notFound("unknown table %q", name))
		return
	}
	ds, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	t := ds.Profile(name)

	if v := r.URL.Query().Get("cols"); v != "" {
		t, err = profile.SelectColumns(t, strings.Split(v, ","))
		if err != nil {
			writeError(w, badRequest("%v", err))
			return
		}
	}

	if ext == ".csv" {
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, t); err != nil {
			writeError(w, err)
			return
		}
		writeDownload(w, "text/csv; charset=utf-8", name+".csv", buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleProfile serves a country profile as JSON, DOCX or PDF.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	country, ext := pathParam(r, "country", ".docx", ".pdf")
	ds, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := profile.CountryProfile(ds, country)
	if err != nil {
		writeError(w, err)
		return
	}
	if ext == "" {
		writeJSON(w, http.StatusOK, p)
		return
	}

	doc := export.NewProfileDocument(p)
	var buf bytes.Buffer
	contentType := contentTypeDOCX
	if ext == ".pdf" {
		contentType = "application/pdf"
		err = export.WritePDF(&buf, doc)
	} else {
		err = export.WriteDOCX(&buf, doc)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeDownload(w, contentType, p.Country+"_profile"+ext, buf.Bytes())
}

func (s *Server) handleQAScores(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"max_score": profile.MaxQAScore,
		"scores":    profile.QAScores(ds.Profile(model.TableQA)),
	})
}

// handleExecutionRates serves the co-financing execution rates. Available is
// false when the table has no usable rate column.
func (s *Server) handleExecutionRates(w http.ResponseWriter, r *http.Request) {
	ds, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	rates, ok := profile.ExecutionRates(ds.Profile(model.TableCofinancing))
	if rates == nil {
		rates = []profile.ExecutionRate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": ok, "rates": rates})
}

func (s *Server) handleValueCounts(w http.ResponseWriter, r *http.Request) {
	name, _ := pathParam(r, "table")
	column, _ := pathParam(r, "column")
	if !slices.Contains(model.ProfileTables, name) {
		writeError(w, notFound("unknown table %q", name))
		return
	}
	ds, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	counts := profile.ValueCounts(ds.Profile(name), column)
	if counts == nil {
		writeError(w, notFound("table %q has no column %q", name, column))
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleUpload previews an uploaded CSV or XLSX file. Unparseable files
// yield {"table": null} rather than an error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, badRequest("upload: %v", err))
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, badRequest("upload: read: %v", err))
		return
	}
	t := dataset.ReadUpload(hdr.Filename, data)
	if t == nil {
		zap.L().Info("upload not parseable", zap.String("file", hdr.Filename), zap.Int("bytes", len(data)))
	}
	writeJSON(w, http.StatusOK, map[string]any{"filename": hdr.Filename, "table": t})
}
