// Package fingerprint derives the content hash used to deduplicate
// recognition events. The hash covers the snapshot content (or its locator),
// the matched employee code, the device id, and a quantized capture-time
// bucket, so identical punches landing within one bucket collapse to one
// fingerprint
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultWindowSeconds is the quantization width W for time bucketing
const DefaultWindowSeconds = 300

// Unknown is the employee-code stand-in when no candidate resolves
const Unknown = "unknown"

// SnapshotReader resolves a snapshot locator to raw bytes when it denotes
// something locally readable. ok=false means the caller falls back to the
// locator string itself
type SnapshotReader interface {
	ReadIfLocal(locator string) (data []byte, ok bool)
}

// LocalFileReader reads snapshot files from the local filesystem with a
// size cap so a hostile locator cannot balloon memory
type LocalFileReader struct {
	// MaxBytes caps the read; 0 means the 16 MiB default
	MaxBytes int64
}

// ReadIfLocal returns the file bytes when locator names a readable regular
// file within the cap. Remote URLs and unreadable paths report ok=false
func (r LocalFileReader) ReadIfLocal(locator string) ([]byte, bool) {
	if locator == "" {
		return nil, false
	}
	if strings.Contains(locator, "://") {
		return nil, false
	}
	max := r.MaxBytes
	if max <= 0 {
		max = 16 << 20
	}

	fi, err := os.Stat(locator)
	if err != nil || !fi.Mode().IsRegular() || fi.Size() > max {
		return nil, false
	}
	f, err := os.Open(locator)
	if err != nil {
		return nil, false
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, max))
	if err != nil {
		return nil, false
	}
	return data, true
}

// NopReader never resolves a locator; hashing then always uses the locator
// string. Used when snapshots live in remote object storage
type NopReader struct{}

// ReadIfLocal always reports ok=false
func (NopReader) ReadIfLocal(string) ([]byte, bool) { return nil, false }

// Generator computes recognition fingerprints
type Generator struct {
	reader SnapshotReader
	window int64
}

// New builds a Generator. A nil reader defaults to LocalFileReader and a
// non-positive window defaults to DefaultWindowSeconds
func New(reader SnapshotReader, windowSeconds int64) Generator {
	if reader == nil {
		reader = LocalFileReader{}
	}
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}
	return Generator{reader: reader, window: windowSeconds}
}

// WindowSeconds returns the configured bucket width
func (g Generator) WindowSeconds() int64 { return g.window }

// Hash derives the 64-char lowercase hex fingerprint.
// Component order is fixed: content seed, employee code, device id, bucket.
// Absent components contribute nothing
func (g Generator) Hash(snapshotLocator, employeeCode, deviceID string, capturedAt time.Time) string {
	var b strings.Builder

	if snapshotLocator != "" {
		if data, ok := g.reader.ReadIfLocal(snapshotLocator); ok {
			sum := sha256.Sum256(data)
			b.WriteString(hex.EncodeToString(sum[:]))
		} else {
			b.WriteString(snapshotLocator)
		}
	}
	b.WriteString(employeeCode)
	b.WriteString(deviceID)
	b.WriteString(strconv.FormatInt(bucket(capturedAt, g.window), 10))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// WithinDedupWindow reports whether two instants fall within windowSeconds
// of each other
func WithinDedupWindow(a, b time.Time, windowSeconds int64) bool {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}
	d := a.Unix() - b.Unix()
	if d < 0 {
		d = -d
	}
	return d <= windowSeconds
}

func bucket(t time.Time, w int64) int64 {
	e := t.Unix()
	// floor division, stable for pre-epoch instants too
	q := e / w
	if e%w < 0 {
		q--
	}
	return q
}
