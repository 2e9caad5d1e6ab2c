package gemini

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

const (
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Algenib"

	pcmSampleRate = 24000
	pcmChannels   = 1
	pcmBitDepth   = 16
)

// ErrSynthesisDisabled is returned by the disabled speaker.
var ErrSynthesisDisabled = errors.New("speech synthesis disabled")

// Speaker reads text aloud. Speak returns a WAV file.
type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

type speaker struct {
	log   *logger.Logger
	gen   generator
	model string
	voice string
}

func NewSpeaker(ctx context.Context, log *logger.Logger, cfg Config) (Speaker, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newSpeaker(log, cli.Models, cfg), nil
}

func newSpeaker(log *logger.Logger, gen generator, cfg Config) *speaker {
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return &speaker{
		log:   log.With("service", "GeminiSpeaker"),
		gen:   gen,
		model: cfg.SpeechModel,
		voice: cfg.Voice,
	}
}

func (s *speaker) Speak(ctx context.Context, text string) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}}
	resp, err := s.gen.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return nil, classify(err)
	}
	blob := audioBlob(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, errors.New("no audio in response")
	}
	return encodeWAV(blob.Data, sampleRate(blob.MIMEType)), nil
}

func audioBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
				return p.InlineData
			}
		}
	}
	return nil
}

// sampleRate reads rate= from an audio/L16 media type.
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return pcmSampleRate
}

// encodeWAV wraps little-endian 16-bit mono PCM in a RIFF header.
func encodeWAV(pcm []byte, rate int) []byte {
	blockAlign := pcmChannels * pcmBitDepth / 8
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(pcmChannels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(pcmBitDepth))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// SpeechDisabled is the Speaker used when TTS_ENABLED is off.
type SpeechDisabled struct{}

func (SpeechDisabled) Speak(context.Context, string) ([]byte, error) {
	return nil, ErrSynthesisDisabled
}
