package entry

import (
	"encoding/base64"
	"testing"

	"github.com/daybook-app/core/internal/models"
	"github.com/daybook-app/core/internal/pkg/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	return NewCodec(keyring.New(t.TempDir(), zap.NewNop()), zap.NewNop())
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	original := &Entry{
		Title:         "Long walk",
		Text:          "Walked the coastal path with Ana.",
		Tags:          []string{"outdoors", "friends"},
		Attachments:   []Attachment{{Name: "path.jpg", Ref: "https://cdn.example.com/path.jpg", Type: "image/jpeg"}},
		AudioRef:      "https://cdn.example.com/memo.m4a",
		Transcription: "a short voice memo",
	}

	payload, format, err := codec.Encode("owner-1", original)
	require.NoError(t, err)
	assert.Equal(t, models.EntryFormatAESGCM, format)
	assert.NotContains(t, payload, "coastal")

	row := &models.EntryModel{Payload: payload, PayloadFormat: format, Mood: 4, Date: "2026-03-01"}
	row.ID = "e1"

	decoded, err := codec.Decode("owner-1", row)
	require.NoError(t, err)
	assert.Equal(t, original.Title, decoded.Title)
	assert.Equal(t, original.Text, decoded.Text)
	assert.Equal(t, original.Tags, decoded.Tags)
	assert.Equal(t, original.Attachments, decoded.Attachments)
	assert.Equal(t, original.AudioRef, decoded.AudioRef)
	assert.Equal(t, original.Transcription, decoded.Transcription)
	assert.Equal(t, 4, decoded.Mood)
	assert.Equal(t, "2026-03-01", decoded.Date)
}

func TestCodecPayloadDiffersPerOwner(t *testing.T) {
	codec := newTestCodec(t)
	e := &Entry{Title: "same content", Text: "same text"}

	p1, _, err := codec.Encode("owner-a", e)
	require.NoError(t, err)
	p2, _, err := codec.Encode("owner-b", e)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	// A payload sealed for one owner is unreadable under another owner's key.
	row := &models.EntryModel{Payload: p1, PayloadFormat: models.EntryFormatAESGCM}
	decoded, err := codec.Decode("owner-b", row)
	require.NoError(t, err)
	assert.Equal(t, CorruptedTitle, decoded.Title)
}

func TestCodecDecodePlainFormat(t *testing.T) {
	codec := newTestCodec(t)
	row := &models.EntryModel{
		Payload:       `{"title":"Old entry","text":"from before encryption","tags":["legacy"]}`,
		PayloadFormat: models.EntryFormatPlain,
	}

	decoded, err := codec.Decode("owner-1", row)
	require.NoError(t, err)
	assert.Equal(t, "Old entry", decoded.Title)
	assert.Equal(t, "from before encryption", decoded.Text)
	assert.Equal(t, []string{"legacy"}, decoded.Tags)
}

func TestCodecDecodeEmptyFormatSniffsJSON(t *testing.T) {
	codec := newTestCodec(t)

	row := &models.EntryModel{Payload: `{"title":"Pre-migration"}`}
	decoded, err := codec.Decode("owner-1", row)
	require.NoError(t, err)
	assert.Equal(t, "Pre-migration", decoded.Title)

	row = &models.EntryModel{Payload: "random garbage"}
	decoded, err = codec.Decode("owner-1", row)
	require.NoError(t, err)
	assert.Equal(t, InvalidTitle, decoded.Title)
}

func TestCodecDecodeCorruptionYieldsPlaceholder(t *testing.T) {
	codec := newTestCodec(t)

	for name, payload := range map[string]string{
		"not base64":       "!!not-base64!!",
		"too short":        base64.StdEncoding.EncodeToString([]byte("tiny")),
		"tampered":         tamperedPayload(t, codec),
		"empty ciphertext": "",
	} {
		row := &models.EntryModel{
			Payload:       payload,
			PayloadFormat: models.EntryFormatAESGCM,
			Date:          "2026-03-02",
			Mood:          2,
		}
		decoded, err := codec.Decode("owner-1", row)
		require.NoError(t, err, name)
		assert.Equal(t, CorruptedTitle, decoded.Title, name)
		assert.Empty(t, decoded.Text, name)
		// Clear columns survive the loss of the payload.
		assert.Equal(t, "2026-03-02", decoded.Date, name)
		assert.Equal(t, 2, decoded.Mood, name)
	}
}

func TestCodecDecodeUnknownFormat(t *testing.T) {
	codec := newTestCodec(t)
	row := &models.EntryModel{Payload: "whatever", PayloadFormat: "chacha20"}

	decoded, err := codec.Decode("owner-1", row)
	require.NoError(t, err)
	assert.Equal(t, InvalidTitle, decoded.Title)
}

func tamperedPayload(t *testing.T, codec *Codec) string {
	t.Helper()
	payload, _, err := codec.Encode("owner-1", &Entry{Title: "intact"})
	require.NoError(t, err)

	sealed, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	return base64.StdEncoding.EncodeToString(sealed)
}
