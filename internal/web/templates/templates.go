// Package templates renders the HTML pages served by the web package.
//
// Pages are written as .templ sources. Run `templ generate` after editing
// one; the *_templ.go files are its output and are not edited by hand.
package templates

import (
	"net/url"

	"github.com/JonMunkholm/disha/internal/core"
)

// exportFormats are offered as download links on the dashboard.
var exportFormats = []core.Format{core.FormatCSV, core.FormatCSVLegacy, core.FormatXLSX}

type formField struct {
	Name  string
	Label string
}

// studentFormFields are the inputs of the add student form, in column order.
var studentFormFields = []formField{
	{Name: "name", Label: "Name"},
	{Name: "class", Label: "Class"},
	{Name: "phone_number", Label: "Phone number"},
	{Name: "school_name", Label: "School"},
	{Name: "state", Label: "State"},
	{Name: "district", Label: "District"},
}

// exportURL links to an export of the rows the dashboard currently shows.
func exportURL(f core.Format, c core.FilterCriteria) string {
	return queryURL("/api/students/export",
		"format", string(f),
		"district", c.District,
		"school", c.School,
		"search", c.SearchQuery,
	)
}

// queryURL builds a same-origin URL from path and key/value pairs,
// dropping empty values.
func queryURL(path string, params ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(params); i += 2 {
		if params[i+1] != "" {
			q.Set(params[i], params[i+1])
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func createdDate(a core.AccountRecord) string {
	if a.CreatedAt.IsZero() {
		return ""
	}
	return a.CreatedAt.Format("2006-01-02")
}
