package voice

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultTranscribeModelName = "gemini-1.5-flash-latest"
	defaultAudioMIMEType       = "audio/webm"

	// Inline request payloads are capped by the API at roughly 20 MB.
	maxAudioBytes = 20 << 20
)

// KeySource returns the stored API credential.
type KeySource func() (string, error)

// GeminiRecognizer transcribes an uploaded audio clip with a Gemini model.
type GeminiRecognizer struct {
	keys     KeySource
	model    string
	language string
	opts     []option.ClientOption
	logger   *zap.Logger
}

func NewGeminiRecognizer(keys KeySource, language string, logger *zap.Logger, opts ...option.ClientOption) *GeminiRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if language == "" {
		language = "en-US"
	}
	return &GeminiRecognizer{
		keys:     keys,
		model:    defaultTranscribeModelName,
		language: language,
		opts:     opts,
		logger:   logger,
	}
}

type mimeReader struct {
	io.Reader
	mimeType string
}

// WithMIMEType tags an audio stream with its content type.
func WithMIMEType(r io.Reader, mimeType string) io.Reader {
	return mimeReader{Reader: r, mimeType: mimeType}
}

func transcribeInstruction(language string) string {
	return fmt.Sprintf("Transcribe the single utterance in this audio clip. The speaker uses the %s locale. "+
		"Respond with only the final transcript as plain text, no quotes and no commentary. "+
		"If the clip contains no speech, respond with an empty message.", language)
}

func (r *GeminiRecognizer) Recognize(ctx context.Context, audio io.Reader) (string, error) {
	key, err := r.keys()
	if err != nil {
		return "", err
	}

	mimeType := defaultAudioMIMEType
	if mr, ok := audio.(mimeReader); ok && mr.mimeType != "" {
		mimeType = mr.mimeType
	}

	data, err := io.ReadAll(io.LimitReader(audio, maxAudioBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read audio: %w", ErrRecognition, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrRecognition)
	}
	if len(data) > maxAudioBytes {
		return "", fmt.Errorf("%w: audio clip exceeds %d bytes", ErrRecognition, maxAudioBytes)
	}

	opts := append([]option.ClientOption{option.WithAPIKey(key)}, r.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(r.model)
	temp := float32(0)
	candidates := int32(1)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:    &temp,
		CandidateCount: &candidates,
	}

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(transcribeInstruction(r.language)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: gemini transcription request failed: %w", ErrRecognition, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty transcription response", ErrRecognition)
	}

	var transcript strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			transcript.WriteString(string(txt))
		}
	}

	r.logger.Debug("Audio transcribed", zap.String("mime", mimeType), zap.Int("bytes", len(data)))
	return strings.Trim(transcript.String(), "\"'\n\r\t "), nil
}
