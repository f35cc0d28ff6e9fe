// Package qrpass encodes student identity into the QR payload shown by the
// mobile app and decodes it back at scan time. The codec is a pure transform:
// whether the identifier resolves to an enrolled student is the recorder's
// concern, not ours.
package qrpass

import (
	"encoding/json"
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"classtrack/internal/roster"
)

var (
	// ErrMalformedPayload is returned when the raw text is not the expected
	// structure. Surfaced as "Invalid QR Code".
	ErrMalformedPayload = errors.New("qr payload is not valid")
	// ErrMissingIdentifier is returned when no usable student identifier
	// field is present under any known spelling.
	ErrMissingIdentifier = errors.New("qr payload has no student identifier")
)

// Identity is the decoded content of a scanned code.
type Identity struct {
	StudentID string
	Name      string
	Section   string
	TeacherID string
}

// payload is the wire shape. Older app versions wrote the identifier under
// "lrn" or "id"; decode accepts all three, encode always writes "studentId".
type payload struct {
	StudentID string `json:"studentId,omitempty"`
	LRN       string `json:"lrn,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Section   string `json:"section,omitempty"`
	TeacherID string `json:"teacherId,omitempty"`
}

// Encode serializes a student's identity deterministically, preferring the
// stable LRN over the surrogate ID.
func Encode(st roster.Student, teacherID string) (string, error) {
	id := st.LRN
	if id == "" {
		id = st.ID
	}
	raw, err := json.Marshal(payload{
		StudentID: id,
		Name:      st.Name,
		Section:   st.Section,
		TeacherID: teacherID,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a scanned payload. Name and section are optional; a missing
// identifier under every known spelling is an error, a non-JSON payload is
// another.
func Decode(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMalformedPayload
	}
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Identity{}, ErrMalformedPayload
	}

	id := firstNonEmpty(p.StudentID, p.LRN, p.ID)
	if id == "" {
		return Identity{}, ErrMissingIdentifier
	}
	return Identity{
		StudentID: id,
		Name:      strings.TrimSpace(p.Name),
		Section:   strings.TrimSpace(p.Section),
		TeacherID: strings.TrimSpace(p.TeacherID),
	}, nil
}

// RenderPNG renders a payload as a QR image sized size x size pixels.
func RenderPNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
