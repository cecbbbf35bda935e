package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml", "yml" or "" (json).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatFromFilename picks the format from the extension, defaulting to json.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ContentType returns the MIME type for exported files.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// EncodeFile renders the document for export. JSON is indented by two spaces.
func EncodeFile(doc domain.Document, format Format) ([]byte, error) {
	doc = doc.Clone()
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// DecodeFile parses an imported file and requires teams and people.
func DecodeFile(data []byte, format Format) (domain.Document, error) {
	switch format {
	case FormatJSON:
		return UnmarshalDocument(data)
	case FormatYAML:
		return unmarshalYAMLDocument(data)
	default:
		return domain.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ExportFilename derives a download name from the organization name.
// Characters outside [A-Za-z0-9] become underscores.
func ExportFilename(orgName string, format Format) string {
	var b strings.Builder
	for _, r := range orgName {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	base := b.String()
	if base == "" {
		base = "organization"
	}
	if format == FormatYAML {
		return base + "-org-chart.yaml"
	}
	return base + "-org-chart.json"
}
