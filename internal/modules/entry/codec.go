package entry

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daybook-app/core/internal/models"
	"github.com/daybook-app/core/internal/pkg/keyring"
	"go.uber.org/zap"
)

const nonceSize = 12

// sensitivePayload is the encrypted portion of an entry row.
type sensitivePayload struct {
	Title         string       `json:"title,omitempty"`
	Text          string       `json:"text,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	AudioRef      string       `json:"audio_ref,omitempty"`
	Transcription string       `json:"transcription,omitempty"`
}

// Codec seals and opens entry payloads with the owner's key. Decode never
// fails on damaged data: a row that cannot be recovered yields a placeholder
// entry, so one bad row never aborts a list.
type Codec struct {
	keys   *keyring.Keyring
	logger *zap.Logger
}

func NewCodec(keys *keyring.Keyring, logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{keys: keys, logger: logger.Named("EntryCodec")}
}

// Encode marshals the sensitive fields and encrypts them with AES-256-GCM.
// The returned payload is base64(nonce || ciphertext).
func (c *Codec) Encode(ownerID string, e *Entry) (payload, format string, err error) {
	key, err := c.keys.Get(ownerID)
	if err != nil {
		return "", "", err
	}

	plaintext, err := json.Marshal(sensitivePayload{
		Title:         e.Title,
		Text:          e.Text,
		Attachments:   e.Attachments,
		Tags:          e.Tags,
		AudioRef:      e.AudioRef,
		Transcription: e.Transcription,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal payload: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), models.EntryFormatAESGCM, nil
}

// Decode turns a row back into an Entry. The format column decides how the
// payload is interpreted; legacy plaintext rows pass through, and anything
// unrecoverable becomes a placeholder. The only error condition is a missing
// owner key, which poisons every row equally and must surface to the caller.
func (c *Codec) Decode(ownerID string, row *models.EntryModel) (*Entry, error) {
	e := &Entry{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Date:           row.Date,
		Mood:           row.Mood,
		HasAttachments: row.HasAttachments,
		Location:       row.Location,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}

	switch row.PayloadFormat {
	case models.EntryFormatAESGCM:
		key, err := c.keys.Get(ownerID)
		if err != nil {
			return nil, err
		}
		if !c.decryptInto(e, key, row) {
			e.Title = CorruptedTitle
		}
		return e, nil

	case models.EntryFormatPlain:
		if !c.parsePlainInto(e, row.Payload) {
			e.Title = InvalidTitle
		}
		return e, nil

	case "":
		// Rows written before the format column existed carry raw JSON.
		if strings.HasPrefix(strings.TrimSpace(row.Payload), "{") && c.parsePlainInto(e, row.Payload) {
			c.logger.Debug("decoded legacy plaintext entry", zap.String("id", row.ID))
			return e, nil
		}
		e.Title = InvalidTitle
		return e, nil

	default:
		c.logger.Warn("unknown payload format",
			zap.String("id", row.ID),
			zap.String("format", row.PayloadFormat))
		e.Title = InvalidTitle
		return e, nil
	}
}

func (c *Codec) decryptInto(e *Entry, key []byte, row *models.EntryModel) bool {
	sealed, err := base64.StdEncoding.DecodeString(row.Payload)
	if err != nil || len(sealed) <= nonceSize {
		c.logger.Warn("undecodable entry payload", zap.String("id", row.ID), zap.Error(err))
		return false
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return false
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return false
	}

	plaintext, err := aesgcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		c.logger.Warn("entry decrypt failed", zap.String("id", row.ID), zap.Error(err))
		return false
	}

	var payload sensitivePayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		c.logger.Warn("entry payload parse failed", zap.String("id", row.ID), zap.Error(err))
		return false
	}
	applyPayload(e, payload)
	return true
}

func (c *Codec) parsePlainInto(e *Entry, raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return false
	}
	var payload sensitivePayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return false
	}
	applyPayload(e, payload)
	return true
}

func applyPayload(e *Entry, payload sensitivePayload) {
	e.Title = payload.Title
	e.Text = payload.Text
	e.Attachments = payload.Attachments
	e.Tags = payload.Tags
	e.AudioRef = payload.AudioRef
	e.Transcription = payload.Transcription
}
