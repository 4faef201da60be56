// Package ai recovers leaderboard rows from raw HTML with an LLM. It is a
// fallback for when the structural parser no longer matches the page; its
// output has the same raw-triple shape the structural path produces.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nolasundae/hofmirror/internal/utils"
	"github.com/nolasundae/hofmirror/pkg/halloffame"
)

// Extractor pulls raw leaderboard rows out of page HTML.
type Extractor interface {
	ExtractRows(ctx context.Context, tableHTML string) ([]halloffame.RawRow, error)
}

// Config controls how the AI extractor behaves.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

const (
	defaultProvider = "openai"
	defaultModel    = "gpt-4o-mini"
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
)

// NewExtractor builds a concrete Extractor based on the provided config.
func NewExtractor(cfg Config) (Extractor, error) {
	cfg.Provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}

	switch cfg.Provider {
	case "openai":
		return newOpenAIExtractor(cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type openAIExtractor struct {
	apiKey   string
	model    string
	endpoint string
	client   httpClient
}

func newOpenAIExtractor(cfg Config) (*openAIExtractor, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("ai extraction requires an API key (set openai.api_key in config or OPENAI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	return &openAIExtractor{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   client,
	}, nil
}

const systemPrompt = `You extract hall of fame entries from an HTML leaderboard table.
Each row has 3 columns:
1. Participant number (integer)
2. Name (may contain line breaks; join them with a single space)
3. Date (M/D/YY or M/D/YYYY format)

Return ONLY JSON following this schema:
{
  "entries": [
    {"participant_number": 748, "name": "PHILLIP FANGUE", "date": "5/11/25"}
  ]
}

Rules:
1. Extract ALL entries from the table.
2. participant_number must be an integer.
3. name must be cleaned of HTML tags and line breaks, otherwise verbatim.
4. date must be the exact date string as shown.
5. Return ONLY the JSON object, no other text.`

// ExtractRows asks the model to read the table and hands back raw rows in
// page order. Rows the model mangles (no number, no name) are dropped.
func (e *openAIExtractor) ExtractRows(ctx context.Context, tableHTML string) ([]halloffame.RawRow, error) {
	if strings.TrimSpace(tableHTML) == "" {
		return nil, errors.New("ai extraction: empty input")
	}

	utils.Log.Debugf("[ai] extracting rows from %d bytes of HTML", len(tableHTML))

	content, err := e.queryLLM(ctx, tableHTML)
	if err != nil {
		return nil, err
	}

	rows, err := parseRows(content)
	if err != nil {
		return nil, err
	}

	utils.Log.Debugf("[ai] model returned %d rows", len(rows))
	return rows, nil
}

func (e *openAIExtractor) queryLLM(ctx context.Context, tableHTML string) (string, error) {
	reqBody := openAIChatRequest{
		Model: e.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: tableHTML},
		},
		Temperature:    0,
		ResponseFormat: openAIResponseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErrResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErrResp)
		if apiErrResp.Error.Message != "" {
			return "", fmt.Errorf("ai extraction: %s", apiErrResp.Error.Message)
		}
		return "", fmt.Errorf("ai extraction failed with HTTP %d", resp.StatusCode)
	}

	var apiResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", err
	}

	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return "", errors.New("ai extraction returned an empty response")
	}

	return apiResp.Choices[0].Message.Content, nil
}

// parseRows reads the model's JSON. Fenced code blocks are tolerated; some
// models wrap JSON in them regardless of instructions.
func parseRows(content string) ([]halloffame.RawRow, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	parsed := gjson.Parse(content)
	items := parsed.Get("entries")
	if !items.Exists() && parsed.IsArray() {
		// A bare array is close enough.
		items = parsed
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("unable to parse AI response: no entries array")
	}

	var rows []halloffame.RawRow
	for _, item := range items.Array() {
		number := item.Get("participant_number")
		name := strings.TrimSpace(item.Get("name").String())
		if !number.Exists() || name == "" {
			continue
		}
		rows = append(rows, halloffame.RawRow{
			Ordinal:  strings.TrimSpace(number.String()),
			Name:     name,
			DateText: strings.TrimSpace(item.Get("date").String()),
		})
	}
	if len(rows) == 0 {
		return nil, errors.New("ai extraction produced no usable rows")
	}
	return rows, nil
}

type openAIChatRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIMessage      `json:"messages"`
	Temperature    float64              `json:"temperature"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
