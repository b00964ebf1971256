package formatter

import (
	"encoding/json"
	"io"

	"github.com/tordrt/schematighten/internal/policy"
)

// JSONFormatter renders a decision report as indented JSON for audit
// tooling and downstream consumers. Field order follows the struct
// definitions, so identical reports serialize to identical bytes.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Format writes the report as JSON.
func (f *JSONFormatter) Format(rep *policy.Report) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
