// Package translate implements the batch translation controller (spec
// §4.10, C10): bounded-concurrency HTTP translation with chunking, retry,
// and streaming progress, grounded on
// internal/musicbrainz/client.go's rate-limited HTTP client pattern
// generalized from a fixed MusicBrainz endpoint to a configurable
// chat-completions-compatible provider.
package translate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/arek-soma/sfxvault/internal/util"
)

// Item is one filename's translation outcome, aligned back to its input
// position (spec §3, §4.10).
type Item struct {
	Original    string
	Translated  string
	Category    string
	Subcategory string
	Descriptor  string
	Variation   string
}

// Usage aggregates provider-reported token counts across a run.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChunkProgressFunc reports in-flight progress within one chunk (spec
// §4.10 step 5's streaming heuristic).
type ChunkProgressFunc func(partial, total int)

// Provider is the shape a translation backend must satisfy. HTTPProvider
// is the production implementation; tests substitute a fake.
type Provider interface {
	Translate(ctx context.Context, batch []string, sourceLang, targetLang string, progress ChunkProgressFunc) ([]Item, Usage, error)
}

// ProviderConfig configures one HTTPProvider (spec §4.10/§6).
type ProviderConfig struct {
	Name          string
	Endpoint      string
	APIKey        string
	Model         string
	Temperature   float64
	MaxTokens     int
	JSONMode      bool // response_format={"type":"json_object"} when supported
	Streaming     bool // stream=true when supported
	RequestsPerSec float64 // 0 disables rate limiting
	HTTPTimeout   time.Duration
	SystemPrompt  string // UCS-aware translation instructions; see cmd/sfxvault
}

func (c *ProviderConfig) applyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 60 * time.Second
	}
}

// HTTPProvider calls a chat-completions-compatible HTTP endpoint (spec §6).
type HTTPProvider struct {
	cfg     ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPProvider builds an HTTPProvider. A nil limiter is created when
// cfg.RequestsPerSec is 0 (unbounded rate, concurrency is the only gate).
func NewHTTPProvider(cfg ProviderConfig) *HTTPProvider {
	cfg.applyDefaults()
	p := &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	if cfg.RequestsPerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}
	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string                 `json:"model"`
	Messages       []chatMessage          `json:"messages"`
	Temperature    float64                `json:"temperature"`
	MaxTokens      int                    `json:"max_tokens"`
	Stream         bool                   `json:"stream,omitempty"`
	ResponseFormat map[string]string      `json:"response_format,omitempty"`
}

const maxAttempts = 3

// Translate sends one chunk's filenames to the provider, retrying
// retryable failures with `2^attempt + uniform(0,1)` second backoff up to
// maxAttempts, and falling back to identity translation for the whole
// chunk if every attempt fails (spec §4.10 step 4, §7).
func (p *HTTPProvider) Translate(ctx context.Context, batch []string, sourceLang, targetLang string, progress ChunkProgressFunc) ([]Item, Usage, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return identityItems(batch), Usage{}, nil
			}
		}

		items, usage, retryable, err := p.attempt(ctx, batch, sourceLang, targetLang, progress)
		if err == nil {
			return items, usage, nil
		}
		lastErr = err

		if !retryable || attempt == maxAttempts {
			break
		}

		backoff := time.Duration(1<<uint(attempt))*time.Second + time.Duration(rand.Float64()*float64(time.Second))
		util.WarnLog("translate: attempt %d/%d failed (%v), retrying in %s", attempt, maxAttempts, err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return identityItems(batch), Usage{}, nil
		}
	}

	util.ErrorLog("translate: chunk exhausted retries, falling back to identity translation: %v", lastErr)
	return identityItems(batch), Usage{}, nil
}

func identityItems(batch []string) []Item {
	items := make([]Item, len(batch))
	for i, s := range batch {
		items[i] = identityItem(s)
	}
	return items
}

// attempt performs one HTTP request/response cycle. retryable tells the
// caller whether a non-nil err is worth retrying (spec §4.10 step 4: retry
// on 429, >=500, and timeouts; anything else is terminal for this attempt
// but the chunk as a whole still falls back to identity once attempts are
// exhausted).
func (p *HTTPProvider) attempt(ctx context.Context, batch []string, sourceLang, targetLang string, progress ChunkProgressFunc) ([]Item, Usage, bool, error) {
	filenamesJSON, err := json.Marshal(batch)
	if err != nil {
		return nil, Usage{}, false, fmt.Errorf("translate: failed to encode filenames: %w", err)
	}

	userPrompt := fmt.Sprintf("Translate these filenames from %s to %s. Filenames: %s", sourceLang, targetLang, filenamesJSON)
	reqBody := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.cfg.SystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Stream:      p.cfg.Streaming,
	}
	if p.cfg.JSONMode {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, Usage{}, false, fmt.Errorf("translate: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, Usage{}, false, fmt.Errorf("translate: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Usage{}, true, fmt.Errorf("translate: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return nil, Usage{}, true, fmt.Errorf("translate: provider returned %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, Usage{}, false, fmt.Errorf("translate: provider returned %d: %s", resp.StatusCode, string(body))
	}

	var content string
	var usage Usage
	if p.cfg.Streaming && strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		content, usage = consumeStream(resp.Body, len(batch), progress)
	} else {
		content, usage = consumeSingleBody(resp.Body)
	}

	items := parseResponse(content, batch)
	return items, usage, false, nil
}

type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type singleBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// consumeStream accumulates delta tokens from an SSE stream terminated by
// `data: [DONE]` and reports a heuristic in-flight progress that counts
// occurrences of the marker "translated" in the accumulated buffer,
// capped at total-1 (spec §4.10 step 5). This can undercount when the
// marker straddles two chunks (spec §9 Open Question #2); the chunk-end
// reconciliation in the controller corrects the total once the chunk
// finishes.
func consumeStream(body io.Reader, total int, progress ChunkProgressFunc) (string, Usage) {
	var buf strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	reported := 0
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamDelta
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		for _, c := range chunk.Choices {
			buf.WriteString(c.Delta.Content)
		}

		if progress != nil {
			count := strings.Count(buf.String(), "translated")
			if count > total-1 {
				count = total - 1
			}
			if count > reported {
				reported = count
				progress(reported, total)
			}
		}
	}
	return buf.String(), Usage{}
}

func consumeSingleBody(body io.Reader) (string, Usage) {
	var resp singleBody
	data, err := io.ReadAll(body)
	if err != nil {
		return "", Usage{}
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return string(data), Usage{}
	}
	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if len(resp.Choices) == 0 {
		return string(data), usage
	}
	return resp.Choices[0].Message.Content, usage
}
