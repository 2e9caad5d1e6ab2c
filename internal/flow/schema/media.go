package schema

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MediaRef is a decoded binary content reference.
type MediaRef struct {
	MediaType string
	Data      []byte
	URI       string
}

var (
	errNotDataURI   = errors.New("invalid media reference: expected data:<type>;base64,<payload>")
	errNoMediaType  = errors.New("invalid media reference: missing media type")
	errNotBase64    = errors.New("invalid media reference: payload is not base64")
	errEmptyPayload = errors.New("invalid media reference: empty payload")
)

// ParseMedia decodes a data URI of the form data:<type>[;param=value]*;base64,<payload>.
func ParseMedia(uri string) (MediaRef, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return MediaRef{}, errNotDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return MediaRef{}, errNotDataURI
	}
	params := strings.Split(header, ";")
	if len(params) < 2 || !strings.EqualFold(strings.TrimSpace(params[len(params)-1]), "base64") {
		return MediaRef{}, errNotDataURI
	}
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	if mediaType == "" || !strings.Contains(mediaType, "/") {
		return MediaRef{}, errNoMediaType
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return MediaRef{}, errEmptyPayload
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return MediaRef{}, errNotBase64
		}
	}
	if len(data) == 0 {
		return MediaRef{}, errEmptyPayload
	}
	return MediaRef{MediaType: mediaType, Data: data, URI: uri}, nil
}

// IsImage reports whether the reference carries an image.
func (m MediaRef) IsImage() bool { return strings.HasPrefix(m.MediaType, "image/") }

// IsAudio reports whether the reference carries audio.
func (m MediaRef) IsAudio() bool { return strings.HasPrefix(m.MediaType, "audio/") }

func mediaAllowed(allowed []string, mediaType string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == mediaType {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(mediaType, prefix+"/") {
			return true
		}
	}
	return false
}
