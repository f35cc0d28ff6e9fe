package qrpass

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/roster"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	st := roster.Student{
		ID:      "b3f1c2d4",
		LRN:     "2024001",
		Name:    "Ana Santos",
		Section: "Grade 4A",
	}

	raw, err := Encode(st, "teacher-1")
	require.NoError(t, err)

	id, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024001", id.StudentID, "encode prefers the LRN")
	assert.Equal(t, "Ana Santos", id.Name)
	assert.Equal(t, "Grade 4A", id.Section)
	assert.Equal(t, "teacher-1", id.TeacherID)
}

func TestEncodeFallsBackToSurrogateID(t *testing.T) {
	raw, err := Encode(roster.Student{ID: "b3f1c2d4", Name: "Ana Santos"}, "")
	require.NoError(t, err)

	id, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "b3f1c2d4", id.StudentID)
}

func TestDecodeAcceptsLegacySpellings(t *testing.T) {
	cases := map[string]string{
		"studentId":       `{"studentId":"2024001","name":"Ana Santos"}`,
		"lrn":             `{"lrn":"2024001"}`,
		"id":              `{"id":"2024001"}`,
		"studentId first": `{"id":"ignored","lrn":"also-ignored","studentId":"2024001"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			id, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, "2024001", id.StudentID)
		})
	}
}

func TestDecodeOptionalFields(t *testing.T) {
	id, err := Decode(`{"studentId":"X1","section":"A"}`)
	require.NoError(t, err)
	assert.Equal(t, "X1", id.StudentID)
	assert.Empty(t, id.Name)
	assert.Equal(t, "A", id.Section)
}

func TestDecodeMissingIdentifier(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"name":"Ana Santos","section":"Grade 4A"}`,
		`{"studentId":"   "}`,
	} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrMissingIdentifier, "payload %q", raw)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"not json at all",
		`{"studentId":`,
	} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrMalformedPayload, "payload %q", raw)
	}
}

func TestRenderPNG(t *testing.T) {
	raw, err := Encode(roster.Student{LRN: "2024001", Name: "Ana Santos"}, "teacher-1")
	require.NoError(t, err)

	png, err := RenderPNG(raw, 0) // zero falls back to the default size
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
