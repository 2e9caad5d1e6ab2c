package flow

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var (
	errEmptyResponse = errors.New("empty response")
	errTrailingData  = errors.New("trailing data after JSON value")
)

// stripFence removes a surrounding Markdown code fence such as ```json … ```.
func stripFence(s string) string {
	clean := strings.TrimSpace(s)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```")
	if nl := strings.IndexAny(clean, "\r\n"); nl >= 0 && !strings.ContainsAny(clean[:nl], "{[\"") {
		clean = clean[nl:]
	}
	clean = strings.TrimSpace(clean)
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// decodeTree parses exactly one JSON value, keeping numbers as json.Number.
func decodeTree(raw string) (any, error) {
	text := stripFence(raw)
	if text == "" {
		return nil, errEmptyResponse
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

// decodeInto converts a validated tree into T, rejecting fields T does not declare.
func decodeInto[T any](tree any) (T, error) {
	var out T
	raw, err := json.Marshal(tree)
	if err != nil {
		return out, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
