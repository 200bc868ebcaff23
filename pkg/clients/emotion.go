// Package clients wraps the third-party services the chat flow depends on.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type emotionRequest struct {
	Inputs string `json:"inputs"`
}

type emotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HFEmotion calls a HuggingFace text-classification inference endpoint.
type HFEmotion struct {
	url   string
	token string
	c     *http.Client
}

func NewHFEmotion(url, token string, timeout time.Duration) *HFEmotion {
	return &HFEmotion{url: url, token: token, c: &http.Client{Timeout: timeout}}
}

// Classify returns the highest scoring label for text.
func (h *HFEmotion) Classify(ctx context.Context, text string) (string, error) {
	b, _ := json.Marshal(emotionRequest{Inputs: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("emotion read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("emotion %s: %s", resp.Status, string(body))
	}

	scores, err := decodeScores(body)
	if err != nil {
		return "", fmt.Errorf("emotion decode: %w", err)
	}
	if len(scores) == 0 {
		return "", fmt.Errorf("emotion: empty result")
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best.Label, nil
}

// decodeScores accepts both the nested [[...]] shape returned for a single
// input and the flat [...] shape some deployments return.
func decodeScores(body []byte) ([]emotionScore, error) {
	var nested [][]emotionScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []emotionScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, err
	}
	return flat, nil
}
