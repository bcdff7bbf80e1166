/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialstudio/internal/domain"
)

func TestGenerateSendsPromptAndInstruction(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k1" {
			t.Errorf("api key header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Governança que gera confiança.  "}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "test-model", "k1", time.Second)
	text, err := c.Generate(context.Background(), " post sobre ESG ")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Governança que gera confiança." {
		t.Fatalf("text = %q", text)
	}
	if len(got.Contents) != 1 || got.Contents[0].Parts[0].Text != "post sobre ESG" {
		t.Fatalf("prompt not sent: %+v", got.Contents)
	}
	if !strings.Contains(got.SystemInstruction.Parts[0].Text, "ASC Consulting") {
		t.Fatalf("system instruction missing")
	}
}

func TestGenerateFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota", http.StatusTooManyRequests)
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		},
		"blank": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		c := NewClient(srv.URL, "m", "", time.Second)
		_, err := c.Generate(context.Background(), "olá")
		srv.Close()
		var ge *domain.GenerationError
		if !errors.As(err, &ge) {
			t.Fatalf("%s: expected GenerationError, got %v", name, err)
		}
		if (name == "empty" || name == "blank") != errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("%s: wrong empty classification: %v", name, err)
		}
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()
	_, err := NewClient(srv.URL, "", "", 0).Generate(context.Background(), "   ")
	var ge *domain.GenerationError
	if !errors.As(err, &ge) || called {
		t.Fatalf("empty prompt: err=%v called=%v", err, called)
	}
}
