package core

import (
	"time"
)

// Role is the authorization level of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// StudentRecord is a single student row.
type StudentRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Class       string    `json:"class"`
	PhoneNumber string    `json:"phone_number"`
	SchoolName  string    `json:"school_name"`
	State       string    `json:"state"`
	District    string    `json:"district"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Fields returns the record's values in CSV column order.
func (s StudentRecord) Fields() []string {
	return []string{s.Name, s.Class, s.PhoneNumber, s.SchoolName, s.State, s.District}
}

// NewStudent contains the fields needed to insert a StudentRecord.
// The store assigns the ID.
type NewStudent struct {
	Name        string `json:"name" validate:"required"`
	Class       string `json:"class" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	SchoolName  string `json:"school_name" validate:"required"`
	State       string `json:"state" validate:"required"`
	District    string `json:"district" validate:"required"`
}

// NewStudentFrom copies the data fields of an imported record.
func NewStudentFrom(s StudentRecord) NewStudent {
	return NewStudent{
		Name:        s.Name,
		Class:       s.Class,
		PhoneNumber: s.PhoneNumber,
		SchoolName:  s.SchoolName,
		State:       s.State,
		District:    s.District,
	}
}

// AccountRecord is a stored login account.
type AccountRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// Principal returns the password-free copy of the account used for sessions.
func (a AccountRecord) Principal() Principal {
	return Principal{ID: a.ID, Username: a.Username, Role: a.Role}
}

// NewAccountRecord contains the fields needed to insert an AccountRecord.
type NewAccountRecord struct {
	Username     string
	Role         Role
	PasswordHash []byte
}

// Principal identifies the authenticated actor.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// FilterCriteria selects students. Empty fields do not filter.
type FilterCriteria struct {
	District    string `json:"district,omitempty"`
	School      string `json:"school,omitempty"`
	SearchQuery string `json:"search,omitempty"`
}

// IsEmpty reports whether no criterion is set.
func (c FilterCriteria) IsEmpty() bool {
	return c.District == "" && c.School == "" && c.SearchQuery == ""
}

// FilterOptions lists the values a caller can filter by.
type FilterOptions struct {
	Districts []string `json:"districts"`
	Schools   []string `json:"schools"`
	States    []string `json:"states"`
}

// Format selects the file encoding for import and export.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatCSVLegacy Format = "csv-legacy"
	FormatXLSX      Format = "xlsx"
)

// ParseFormat converts a request value to a Format. Empty means CSV.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatCSVLegacy, FormatXLSX:
		return Format(s), true
	default:
		return "", false
	}
}

// ContentType returns the MIME type used when serving this format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Extension returns the file extension for this format.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return "xlsx"
	}
	return "csv"
}

// FailedRow contains information about a row that failed to insert.
type FailedRow struct {
	LineNumber int      `json:"line"`
	Reason     string   `json:"reason"`
	Data       []string `json:"data"`
}

// ImportResult contains the final result of an import.
type ImportResult struct {
	ImportID   string        `json:"import_id"`
	FileName   string        `json:"file_name"`
	Format     Format        `json:"format"`
	TotalRows  int           `json:"total_rows"`
	Inserted   int           `json:"inserted"`
	FailedRows []FailedRow   `json:"failed_rows,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}
