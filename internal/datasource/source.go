// Package datasource resolves artifact locations (local paths or http(s)
// URLs) to raw JSON bytes. Compressed payloads are detected by magic
// bytes and inflated, and JSONC comments and trailing commas are stripped
// so the loader only ever sees plain JSON.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/jsonc"
)

// SourceType identifies how a location is fetched.
type SourceType string

const (
	// SourceTypeFile is a path on the local filesystem.
	SourceTypeFile SourceType = "file"
	// SourceTypeHTTP is an http:// or https:// URL.
	SourceTypeHTTP SourceType = "http"
)

// Compression identifies the detected payload encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// MaxPayloadBytes bounds a single artifact after decompression.
const MaxPayloadBytes = 512 << 20

// DefaultHTTPTimeout applies when no client is supplied.
const DefaultHTTPTimeout = 30 * time.Second

// ErrNotFound is returned when the location does not exist (missing file
// or HTTP 404).
var ErrNotFound = errors.New("data source not found")

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// Location is a parsed artifact location.
type Location struct {
	Raw  string
	Type SourceType
}

// String returns the location as the user wrote it.
func (l Location) String() string { return l.Raw }

// ParseLocation classifies raw as an HTTP URL or a file path.
func ParseLocation(raw string) Location {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Location{Raw: trimmed, Type: SourceTypeHTTP}
	}
	return Location{Raw: trimmed, Type: SourceTypeFile}
}

// Payload is the normalized content of a location.
type Payload struct {
	Location    Location
	Compression Compression
	Raw         []byte // bytes as fetched, before decompression
	JSON        []byte // decompressed, BOM and comments stripped
}

// Fetcher reads locations. The zero value uses a default HTTP client.
type Fetcher struct {
	Client *http.Client
}

// Fetch reads loc and returns its normalized payload.
func (f Fetcher) Fetch(ctx context.Context, loc Location) (*Payload, error) {
	if loc.Raw == "" {
		return nil, fmt.Errorf("empty location: %w", ErrNotFound)
	}

	var raw []byte
	var err error
	switch loc.Type {
	case SourceTypeHTTP:
		raw, err = f.fetchHTTP(ctx, loc.Raw)
	case SourceTypeFile:
		raw, err = readFile(loc.Raw)
	default:
		return nil, fmt.Errorf("unknown source type: %s", loc.Type)
	}
	if err != nil {
		return nil, err
	}

	body, compression, err := Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", loc.Raw, err)
	}

	return &Payload{
		Location:    loc,
		Compression: compression,
		Raw:         raw,
		JSON:        Normalize(body),
	}, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (f Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if len(data) > MaxPayloadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", url, MaxPayloadBytes)
	}
	return data, nil
}

// Decompress inflates gzip or zstd payloads, detected by magic bytes.
// Anything else is returned unchanged.
func Decompress(data []byte) ([]byte, Compression, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, CompressionGzip, err
		}
		defer zr.Close()
		out, err := readLimited(zr)
		return out, CompressionGzip, err

	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayloadBytes))
		if err != nil {
			return nil, CompressionZstd, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		return out, CompressionZstd, err

	default:
		return data, CompressionNone, nil
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxPayloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxPayloadBytes {
		return nil, fmt.Errorf("decompressed payload exceeds %d bytes", MaxPayloadBytes)
	}
	return out, nil
}

// Normalize strips a UTF-8 BOM and converts JSONC (comments, trailing
// commas) to plain JSON.
func Normalize(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	return jsonc.ToJSON(data)
}
