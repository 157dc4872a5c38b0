package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"ThreatIngest/internal/domain"
)

// Payload encodings supported by the dispatcher.
const (
	EncodingRaw        = "raw"
	EncodingNormalized = "normalized"
)

// ErrMalformedPayload marks records whose payload cannot be submitted.
var ErrMalformedPayload = errors.New("malformed payload")

// Encoder turns a normalized record into the bytes handed to a sink.
type Encoder func(domain.NormalizedRecord) ([]byte, error)

// EncoderFor resolves an encoding name; unknown names use the normalized form.
func EncoderFor(name string) Encoder {
	if name == EncodingRaw {
		return EncodeRaw
	}
	return EncodeNormalized
}

// EncodeRaw forwards the original record bytes untouched.
func EncodeRaw(rec domain.NormalizedRecord) ([]byte, error) {
	raw := bytes.TrimSpace(rec.Raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedPayload)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedPayload)
	}
	return raw, nil
}

// EncodeNormalized serializes the fixed-shape record.
func EncodeNormalized(rec domain.NormalizedRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
