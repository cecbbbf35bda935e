package codec

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

const (
	// ParamDocument carries the encoded document in a share link.
	ParamDocument = "org"
	// ParamName carries the organization display name.
	ParamName = "name"

	// DefaultSharedName names an organization received without a name.
	DefaultSharedName = "Shared Organization"

	maxLinkPayload = 8 << 20
)

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxLinkPayload))
	})
	return zstdEnc, zstdDec, zstdErr
}

// SharedDocument is a document received through a share link.
type SharedDocument struct {
	Name     string
	Document domain.Document
}

// EncodeLink compresses the document into a URL-safe blob.
func EncodeLink(doc domain.Document) (string, error) {
	enc, _, err := zstdCodec()
	if err != nil {
		return "", fmt.Errorf("init zstd: %w", err)
	}
	data, err := MarshalDocument(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(enc.EncodeAll(data, nil)), nil
}

// DecodeLink reverses EncodeLink. Any failure yields ErrMalformedPayload and
// no partial document.
func DecodeLink(blob string) (domain.Document, error) {
	_, dec, err := zstdCodec()
	if err != nil {
		return domain.Document{}, fmt.Errorf("init zstd: %w", err)
	}
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(blob), "="))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	data, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return UnmarshalDocument(data)
}

// BuildShareURL appends the document and name parameters to base.
func BuildShareURL(base string, doc domain.Document, name string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	blob, err := EncodeLink(doc)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(ParamDocument, blob)
	q.Set(ParamName, name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseShareQuery extracts a shared document from query parameters. ok is
// false when the document parameter is absent, meaning no shared state.
func ParseShareQuery(values url.Values) (shared SharedDocument, ok bool, err error) {
	blob := values.Get(ParamDocument)
	if blob == "" {
		return SharedDocument{}, false, nil
	}
	doc, err := DecodeLink(blob)
	if err != nil {
		return SharedDocument{}, true, err
	}
	name := strings.TrimSpace(values.Get(ParamName))
	if name == "" {
		name = DefaultSharedName
	}
	return SharedDocument{Name: name, Document: doc}, true, nil
}

// ParseShareURL is ParseShareQuery for a full URL.
func ParseShareURL(raw string) (SharedDocument, bool, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return SharedDocument{}, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return ParseShareQuery(u.Query())
}
