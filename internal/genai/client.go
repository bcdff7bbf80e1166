/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package genai asks a Gemini-style generateContent endpoint for short
// marketing copy.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialstudio/internal/domain"
	applog "socialstudio/internal/log"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-preview-09-2025"
	DefaultTimeout = 30 * time.Second
)

// SystemInstruction frames every request.
const SystemInstruction = "És um assistente de marketing da consultora 'ASC Consulting'. " +
	"Ajuda a criar textos curtos e impactantes para imagens no LinkedIn/Instagram sobre governança, ESG e auditoria. " +
	"Devolve apenas o texto, sem aspas e sem tags markdown."

// ErrEmptyResponse marks an answer without any text part.
var ErrEmptyResponse = errors.New("empty response")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to the generative endpoint.
type Client struct {
	BaseURL string
	Model   string
	apiKey  string
	client  *http.Client
	log     *slog.Logger
}

// NewClient normalizes baseURL and falls back to the defaults for empty
// values.
func NewClient(baseURL, model, apiKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("genai"),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction content   `json:"systemInstruction"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate returns the trimmed text of the first candidate. Every failure
// is a *domain.GenerationError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &domain.GenerationError{Reason: "empty prompt"}
	}
	body := generateRequest{
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
		SystemInstruction: content{Parts: []part{{Text: SystemInstruction}}},
	}
	var resp generateResponse
	start := time.Now()
	if err := c.doJSON(ctx, http.MethodPost, "/models/"+url.PathEscape(c.Model)+":generateContent", body, &resp); err != nil {
		c.log.Warn("generate failed", slog.Any("err", err), slog.Duration("took", time.Since(start)))
		return "", &domain.GenerationError{Reason: "request failed", Err: err}
	}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if t := strings.TrimSpace(p.Text); t != "" {
				c.log.Debug("generated", slog.Int("chars", len(t)), slog.Duration("took", time.Since(start)))
				return t, nil
			}
		}
	}
	return "", &domain.GenerationError{Reason: "no text in response", Err: ErrEmptyResponse}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
