package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/disha/internal/logging"
	"github.com/google/uuid"
)

// DefaultImportTimeout is the maximum duration of a single import.
const DefaultImportTimeout = 5 * time.Minute

// ServiceOptions tunes import handling. Zero values fall back to defaults.
type ServiceOptions struct {
	MaxFileSize          int64
	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration
}

// Service provides the student record operations used by the web and CLI
// frontends. Every operation is authorized before the store is touched.
type Service struct {
	store   StudentStore
	authz   Authorizer
	limiter *ImportLimiter
	opts    ServiceOptions
}

// NewService creates a new Service instance.
func NewService(store StudentStore, authz Authorizer, opts ServiceOptions) *Service {
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = DefaultImportTimeout
	}
	return &Service{
		store:   store,
		authz:   authz,
		limiter: NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		opts:    opts,
	}
}

// Limiter exposes the import limiter so shutdown can wait for running imports.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// authorizer returns the caller scoped to ctx, or the Service default.
func (s *Service) authorizer(ctx context.Context) Authorizer {
	return ResolveAuthorizer(ctx, s.authz)
}

// ListStudents returns the students matching criteria in store order.
func (s *Service) ListStudents(ctx context.Context, criteria FilterCriteria) ([]StudentRecord, error) {
	if _, err := s.authorizer(ctx).RequireSession(); err != nil {
		return nil, err
	}
	records, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilter(records, criteria), nil
}

// FilterOptions returns the districts, schools and states present in the store.
func (s *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	if _, err := s.authorizer(ctx).RequireSession(); err != nil {
		return FilterOptions{}, err
	}
	records, err := s.store.ListStudents(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	return BuildFilterOptions(records), nil
}

// AddStudent inserts a manually entered student. All six fields are required.
func (s *Service) AddStudent(ctx context.Context, in NewStudent) (StudentRecord, error) {
	principal, err := s.authorizer(ctx).RequireAdmin()
	if err != nil {
		return StudentRecord{}, err
	}

	in.Clean()
	if err := ValidateStruct(in); err != nil {
		return StudentRecord{}, err
	}

	rec, err := s.store.InsertStudent(ctx, in)
	if err != nil {
		return StudentRecord{}, err
	}

	logging.FromContext(ctx).Info("student added",
		"student_id", rec.ID,
		"by", principal.Username,
	)
	return rec, nil
}

// RemoveStudent deletes a student by ID.
func (s *Service) RemoveStudent(ctx context.Context, id string) error {
	principal, err := s.authorizer(ctx).RequireAdmin()
	if err != nil {
		return err
	}
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("student removed",
		"student_id", id,
		"by", principal.Username,
	)
	return nil
}

// ImportRequest describes an uploaded student file.
type ImportRequest struct {
	FileName string
	Format   Format
	Body     io.Reader
}

// Import decodes req.Body and inserts every record with a name. The store
// assigns fresh IDs, so the batch-local IDs from parsing are discarded.
//
// A row the store rejects is reported in ImportResult.FailedRows and the
// remaining rows are still inserted. Cancellation of ctx stops the import
// and returns the partial result together with the context error.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	principal, err := s.authorizer(ctx).RequireAdmin()
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ImportTimeout)
	defer cancel()

	start := time.Now()
	logger := logging.FromContext(ctx).With(
		"file", req.FileName,
		"format", string(req.Format),
		"by", principal.Username,
	)

	records, err := s.decode(req)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoValidRows
	}

	result := &ImportResult{
		ImportID:  uuid.New().String(),
		FileName:  req.FileName,
		Format:    req.Format,
		TotalRows: len(records),
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("import interrupted after %d rows: %w", result.Inserted, err)
		}

		if _, err := s.store.InsertStudent(ctx, NewStudentFrom(rec)); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Duration = time.Since(start)
				return result, fmt.Errorf("import interrupted after %d rows: %w", result.Inserted, ctxErr)
			}
			result.FailedRows = append(result.FailedRows, FailedRow{
				LineNumber: importedLine(rec.ID),
				Reason:     MapError(err).Message,
				Data:       rec.Fields(),
			})
			logger.Debug("import row failed", "line", importedLine(rec.ID), "error", err)
			continue
		}
		result.Inserted++
	}

	result.Duration = time.Since(start)
	logger.Info("import completed",
		"import_id", result.ImportID,
		"rows", result.TotalRows,
		"inserted", result.Inserted,
		"failed", len(result.FailedRows),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *Service) decode(req ImportRequest) ([]StudentRecord, error) {
	if req.Body == nil {
		return nil, ErrMalformedInput
	}
	switch req.Format {
	case FormatCSV, "":
		return Decode(req.Body, DialectRFC4180, s.opts.MaxFileSize)
	case FormatCSVLegacy:
		return Decode(req.Body, DialectLegacy, s.opts.MaxFileSize)
	case FormatXLSX:
		return DecodeXLSX(req.Body, s.opts.MaxFileSize)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrMalformedInput, req.Format)
	}
}

// importedLine recovers the 1-based file line from a batch-local ID. The
// header is line 1, so data row n sits on line n+2.
func importedLine(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, ImportedIDPrefix))
	if err != nil {
		return 0
	}
	return n + 2
}

// Export writes the students matching criteria to w and returns how many
// were written.
func (s *Service) Export(ctx context.Context, w io.Writer, criteria FilterCriteria, format Format) (int, error) {
	records, err := s.ListStudents(ctx, criteria)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatCSV, "":
		err = Encode(w, records, DialectRFC4180)
	case FormatCSVLegacy:
		err = Encode(w, records, DialectLegacy)
	case FormatXLSX:
		err = WriteXLSX(w, records)
	default:
		return 0, fmt.Errorf("%w: unsupported format %q", ErrMalformedInput, format)
	}
	if err != nil {
		return 0, fmt.Errorf("export students: %w", err)
	}
	return len(records), nil
}

// IsImportRejection reports whether err means the uploaded file itself was
// unusable, as opposed to a store or permission failure.
func IsImportRejection(err error) bool {
	return errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrNoValidRows) ||
		errors.Is(err, ErrFileTooLarge)
}
