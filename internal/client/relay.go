package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"codesync/internal/models"
)

// ErrRequestFailed is the terminal failure for a relayed request. There is
// no retry; room state is never touched.
var ErrRequestFailed = errors.New("request failed")

// Fixed fallback messages when a response carries no usable text.
const (
	NoOutputMessage     = "Execution finished with no output."
	NoAIResponseMessage = "No response from AI."
)

// Relay dispatches out-of-band execution and AI requests. It is stateless
// and fully decoupled from room membership; a pending request survives the
// caller navigating away (its result is simply discarded).
type Relay struct {
	baseURL string
	httpc   *http.Client
}

func NewRelay(baseURL string) *Relay {
	return &Relay{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Execute runs a snippet and surfaces the first-present output field:
// stdout, then stderr, then compile diagnostics.
func (r *Relay) Execute(ctx context.Context, language models.Language, code string) (string, error) {
	var result models.RunResult
	err := r.post(ctx, "/execute", models.RunRequest{Language: language, Code: code}, &result)
	if err != nil {
		return "", err
	}
	switch {
	case result.Stdout != "":
		return result.Stdout, nil
	case result.Stderr != "":
		return result.Stderr, nil
	case result.CompileOutput != "":
		return result.CompileOutput, nil
	}
	return NoOutputMessage, nil
}

// AskAI requests assistance for a selected excerpt. An empty excerpt is a
// local validation failure and never reaches the network.
func (r *Relay) AskAI(ctx context.Context, code, prompt string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: select a block of code first", ErrValidation)
	}
	var result models.AIResponse
	err := r.post(ctx, "/ask-ai", models.AIRequest{Code: code, Prompt: prompt}, &result)
	if err != nil {
		return "", err
	}
	if result.Response == "" {
		return NoAIResponseMessage, nil
	}
	return result.Response, nil
}

func (r *Relay) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: %s", ErrRequestFailed, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return nil
}
