package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"codesync/internal/models"
	"codesync/internal/utils"
)

func relayServer(t *testing.T, requests *int32, handler func(w http.ResponseWriter, r *http.Request)) *Relay {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return NewRelay(server.URL)
}

func TestExecuteSurfacesStdoutFirst(t *testing.T) {
	var requests int32
	relay := relayServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		utils.JSON(w, http.StatusOK, models.RunResult{Stdout: "ok\n", Stderr: "noise"})
	})

	out, err := relay.Execute(context.Background(), models.LangPython, "print('ok')")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "ok\n" {
		t.Fatalf("stdout must win over stderr, got %q", out)
	}
}

func TestExecuteFallsBackToStderrThenCompileOutput(t *testing.T) {
	cases := []struct {
		name   string
		result models.RunResult
		want   string
	}{
		{"stderr", models.RunResult{Stderr: "Traceback: boom"}, "Traceback: boom"},
		{"compile", models.RunResult{CompileOutput: "error: ';' expected"}, "error: ';' expected"},
		{"empty", models.RunResult{}, NoOutputMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var requests int32
			relay := relayServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
				utils.JSON(w, http.StatusOK, tc.result)
			})
			out, err := relay.Execute(context.Background(), models.LangJava, "class Main {}")
			if err != nil {
				t.Fatalf("execute failed: %v", err)
			}
			if out != tc.want {
				t.Fatalf("got %q, want %q", out, tc.want)
			}
		})
	}
}

func TestExecuteSurfacesServerError(t *testing.T) {
	var requests int32
	relay := relayServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{Code: "execution_error", Message: "could not run the code"})
	})

	_, err := relay.Execute(context.Background(), models.LangPython, "x")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "could not run the code") {
		t.Fatalf("server message lost: %v", err)
	}
}

func TestAskAIEmptyExcerptNeverHitsNetwork(t *testing.T) {
	var requests int32
	relay := relayServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("request must not reach the server")
	})

	_, err := relay.AskAI(context.Background(), "   \n\t", "Explain")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if atomic.LoadInt32(&requests) != 0 {
		t.Fatalf("expected zero requests, got %d", requests)
	}
}

func TestAskAIReturnsResponseText(t *testing.T) {
	var requests int32
	relay := relayServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask-ai" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		utils.JSON(w, http.StatusOK, models.AIResponse{Response: "It sorts the slice."})
	})

	out, err := relay.AskAI(context.Background(), "sort.Ints(xs)", "Explain this code")
	if err != nil {
		t.Fatalf("ask-ai failed: %v", err)
	}
	if out != "It sorts the slice." {
		t.Fatalf("unexpected response: %q", out)
	}
}

func TestAskAIEmptyResponseUsesFallbackMessage(t *testing.T) {
	var requests int32
	relay := relayServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		utils.JSON(w, http.StatusOK, models.AIResponse{})
	})

	out, err := relay.AskAI(context.Background(), "x", "Explain")
	if err != nil {
		t.Fatalf("ask-ai failed: %v", err)
	}
	if out != NoAIResponseMessage {
		t.Fatalf("expected fallback message, got %q", out)
	}
}

func TestRelayDoesNotRetry(t *testing.T) {
	var requests int32
	relay := relayServer(t, &requests, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := relay.Execute(context.Background(), models.LangPython, "x"); err == nil {
		t.Fatalf("expected failure")
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Fatalf("a failed relay request must not be retried, got %d requests", got)
	}
}
