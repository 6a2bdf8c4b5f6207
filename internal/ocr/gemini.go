package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"receipt-lens/internal/encoding"
)

// geminiPrompt asks for a plain transcription. Extraction of fields happens
// in the verification stage, never in the recognizer.
const geminiPrompt = `You are transcribing a retail receipt. Read every piece of text in the image and return it exactly as printed, top to bottom, preserving line breaks. Return only the transcribed text with no commentary, no markdown and no code blocks. If the image contains no readable text, return an empty response.`

// Gemini implements Recognizer using Google Gemini instead of the remote
// OCR endpoint. Useful when no endpoint is deployed.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a Gemini-backed recognizer.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Recognize transcribes one capture with Gemini.
func (g *Gemini) Recognize(ctx context.Context, payload encoding.Payload) (string, error) {
	raw, err := payload.Decode()
	if err != nil {
		return "", fmt.Errorf("decoding payload: %w", err)
	}

	// genai wants the bare format suffix, not a full MIME type
	format := strings.TrimPrefix(payload.MIME, "image/")

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData(format, raw),
		genai.Text(geminiPrompt),
	)
	if err != nil {
		return "", &NetworkError{Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &MalformedResponseError{Reason: "gemini returned no candidates"}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return text.String(), nil
}

// Close closes the underlying Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
