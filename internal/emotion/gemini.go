package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiPrompt = `Rate the facial expression of the most prominent face in this photo.
Answer with a JSON object with the keys "joy", "anger", "surprise" and "sorrow".
Each value is an integer likelihood: 0 unknown, 1 very unlikely, 2 unlikely,
3 possible, 4 likely, 5 very likely. If there is no face, use 0 for every key.`

// GeminiClassifier asks a Gemini model for emotion likelihoods
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates a classifier using the Gemini API key apiKey
func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

// Classify implements Classifier
func (g *GeminiClassifier) Classify(ctx context.Context, jpeg []byte) (Scores, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geminiPrompt),
			genai.NewPartFromBytes(jpeg, "image/jpeg"),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	return ParseScores(resp.Text())
}

// ParseScores decodes a JSON object of label likelihoods, tolerating a
// fenced code block around it. Values are clamped to the 0-5 scale and
// unknown labels are dropped.
func ParseScores(text string) (Scores, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw map[string]float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("invalid emotion scores %q: %w", text, err)
	}

	scores := make(Scores, len(Labels))
	for _, label := range Labels {
		v := int(raw[label] + 0.5)
		scores[label] = min(max(v, Unknown), VeryLikely)
	}
	return scores, nil
}
