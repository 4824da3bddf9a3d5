package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/logging"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in
// memory before spilling to a temp file.
const multipartMemory = 8 << 20

// multipartOverhead allows for form fields and part headers on top of the
// file itself.
const multipartOverhead = 64 << 10

// StudentListResponse is returned by GET /api/students.
type StudentListResponse struct {
	Students []core.StudentRecord `json:"students"`
	Count    int                  `json:"count"`
	Criteria core.FilterCriteria  `json:"criteria"`
}

// handleListStudents returns students filtered by district, school and search.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	criteria := criteriaFromQuery(r)
	students, err := s.service.ListStudents(r.Context(), criteria)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if students == nil {
		students = []core.StudentRecord{}
	}
	writeJSON(w, StudentListResponse{Students: students, Count: len(students), Criteria: criteria})
}

// handleFilterOptions returns the distinct districts, schools and states.
func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.service.FilterOptions(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, opts)
}

// handleAddStudent creates one student from JSON or the admin form.
func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var in core.NewStudent
	if err := decodeBody(w, r, &in, func() {
		in = core.NewStudent{
			Name:        r.PostFormValue("name"),
			Class:       r.PostFormValue("class"),
			PhoneNumber: r.PostFormValue("phone_number"),
			SchoolName:  r.PostFormValue("school_name"),
			State:       r.PostFormValue("state"),
			District:    r.PostFormValue("district"),
		}
	}); err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.service.AddStudent(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isFormPost(r) {
		redirectWithNotice(w, r, "/admin", "Added "+rec.Name)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

// handleRemoveStudent deletes the student named by the {id} path parameter.
func (s *Server) handleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveStudent(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImport accepts a multipart upload with a "file" part and an optional
// "format" field. Without a format, .xlsx files are read as Excel and
// everything else as CSV.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Refuse before reading a potentially large body.
	if _, err := auth.SessionFromContext(r.Context()).RequireAdmin(); err != nil {
		s.respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		s.respondError(w, r, fieldError("file", "must be sent as multipart/form-data"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fieldError("file", "is required"))
		return
	}
	defer file.Close()

	formatValue := r.FormValue("format")
	if formatValue == "" && strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		formatValue = string(core.FormatXLSX)
	}
	format, ok := core.ParseFormat(formatValue)
	if !ok {
		s.respondError(w, r, fieldError("format", "must be csv, csv-legacy or xlsx"))
		return
	}

	result, err := s.service.Import(r.Context(), core.ImportRequest{
		FileName: header.Filename,
		Format:   format,
		Body:     file,
	})
	if err != nil {
		if result != nil {
			logging.FromContext(r.Context()).Warn("import stopped early",
				"file", header.Filename,
				"inserted", result.Inserted,
			)
		}
		s.respondError(w, r, err)
		return
	}

	if isFormPost(r) {
		redirectWithNotice(w, r, "/admin", importNotice(result))
		return
	}
	writeJSON(w, result)
}

func importNotice(res *core.ImportResult) string {
	msg := "Imported " + strconv.Itoa(res.Inserted) + " of " + strconv.Itoa(res.TotalRows) + " students from " + res.FileName
	if n := len(res.FailedRows); n > 0 {
		msg += " (" + strconv.Itoa(n) + " rows failed)"
	}
	return msg
}

// handleExport streams the filtered students as a download. The export is
// built in memory first so errors still produce a proper error response.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, ok := core.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		s.respondError(w, r, fieldError("format", "must be csv, csv-legacy or xlsx"))
		return
	}

	var buf bytes.Buffer
	n, err := s.service.Export(r.Context(), &buf, criteriaFromQuery(r), format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("students-%s.%s", time.Now().Format("20060102"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Record-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
