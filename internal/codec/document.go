// Package codec moves documents in and out of the process: compact share
// links, human-readable export files and the stored JSON form.
package codec

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

var (
	// ErrMalformedPayload means the input is not structurally a document.
	ErrMalformedPayload = errors.New("malformed document payload")
	// ErrUnsupportedFormat means the requested file format is unknown.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// rawDocument distinguishes an absent collection from an empty one.
type rawDocument struct {
	Teams       *map[string]domain.Team   `json:"teams" yaml:"teams"`
	People      *map[string]domain.Person `json:"people" yaml:"people"`
	OrgProducts []domain.Product          `json:"orgProducts" yaml:"orgProducts"`
}

func (r rawDocument) document() (domain.Document, error) {
	if r.Teams == nil {
		return domain.Document{}, fmt.Errorf("%w: missing teams", ErrMalformedPayload)
	}
	if r.People == nil {
		return domain.Document{}, fmt.Errorf("%w: missing people", ErrMalformedPayload)
	}
	for key, team := range *r.Teams {
		if team.ID != key {
			return domain.Document{}, fmt.Errorf("%w: team %q stored under key %q", ErrMalformedPayload, team.ID, key)
		}
	}
	for key, person := range *r.People {
		if person.ID != key {
			return domain.Document{}, fmt.Errorf("%w: person %q stored under key %q", ErrMalformedPayload, person.ID, key)
		}
	}
	doc := domain.Document{
		Teams:       *r.Teams,
		People:      *r.People,
		OrgProducts: r.OrgProducts,
	}
	return doc.Normalize(), nil
}

// MarshalDocument returns the compact JSON form used for storage. Empty
// collections are written as [] and {}, never null.
func MarshalDocument(doc domain.Document) ([]byte, error) {
	return json.Marshal(doc.Clone())
}

// UnmarshalDocument parses JSON and requires the teams and people collections.
func UnmarshalDocument(data []byte) (domain.Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return raw.document()
}

func unmarshalYAMLDocument(data []byte) (domain.Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return raw.document()
}

// Fingerprint is a BLAKE2b-256 digest of the document's canonical JSON.
// encoding/json sorts map keys, so equal documents hash equally.
func Fingerprint(doc domain.Document) (string, error) {
	data, err := MarshalDocument(doc)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
