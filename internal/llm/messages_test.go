package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		SystemText("be brief"),
		SystemText("  "),
		UserText("hi"),
		SystemText("no emoji"),
		AssistantText("hello"),
	})
	if system != "be brief\n\nno emoji" {
		t.Fatalf("system=%q", system)
	}
	if len(rest) != 2 || rest[0].Role != RoleUser || rest[1].Role != RoleAssistant {
		t.Fatalf("rest=%+v", rest)
	}
}

func TestBuildOpenAIMessagesSkipsEmptySystem(t *testing.T) {
	msgs := buildOpenAIMessages([]Message{SystemText(""), UserText("hi"), AssistantText("yo")})
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].OfUser == nil || msgs[1].OfAssistant == nil {
		t.Fatalf("roles out of order: %+v", msgs)
	}
}

func TestBuildAnthropicMessagesSkipsEmptyAssistant(t *testing.T) {
	msgs := buildAnthropicMessages([]Message{UserText("a"), AssistantText(""), UserText("b")})
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	for i, m := range msgs {
		if m.Role != "user" {
			t.Fatalf("msgs[%d].Role=%q", i, m.Role)
		}
	}
}

func TestBuildGeminiContentsRoles(t *testing.T) {
	contents := buildGeminiContents([]Message{UserText("q"), AssistantText("a"), AssistantText("")})
	if len(contents) != 2 {
		t.Fatalf("got %d contents, want 2", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) || contents[1].Role != string(genai.RoleModel) {
		t.Fatalf("roles=%q,%q", contents[0].Role, contents[1].Role)
	}
	if contents[1].Parts[0].Text != "a" {
		t.Fatalf("text=%q", contents[1].Parts[0].Text)
	}
}

func openAIChunk(text string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", text)
}

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider("test-key", srv.URL, "m", option.WithMaxRetries(0))
}

func collect(t *testing.T, s Stream) (string, []Event) {
	t.Helper()
	defer s.Close()
	var text strings.Builder
	var events []Event
	for {
		ev, err := s.Recv()
		if err == io.EOF {
			return text.String(), events
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		events = append(events, ev)
		if ev.Type == EventTextDelta {
			text.WriteString(ev.Text)
		}
	}
}

func TestOpenAIProviderStreamsDeltas(t *testing.T) {
	var gotAuth string
	var gotBody string
	p := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hel", "lo"} {
			io.WriteString(w, openAIChunk(chunk))
		}
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := p.Stream(context.Background(), Request{
		Messages: []Message{SystemText("sys"), UserText("hi")},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	text, events := collect(t, stream)

	if text != "Hello" {
		t.Fatalf("text=%q, want Hello", text)
	}
	if last := events[len(events)-1]; last.Type != EventDone {
		t.Fatalf("last event=%v, want done", last.Type)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization=%q", gotAuth)
	}
	if !strings.Contains(gotBody, `"stream":true`) || !strings.Contains(gotBody, `"content":"sys"`) {
		t.Fatalf("request body=%s", gotBody)
	}
}

func TestOpenAIProviderHTTPErrorBecomesEvent(t *testing.T) {
	p := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	stream, err := p.Stream(context.Background(), Request{Messages: []Message{UserText("hi")}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	_, events := collect(t, stream)
	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("events=%+v", events)
	}
	if !strings.Contains(events[0].Err.Error(), "openai streaming error") {
		t.Fatalf("err=%v", events[0].Err)
	}
}

func TestOpenAIProviderNoMessages(t *testing.T) {
	p := NewOpenAIProvider("k", "http://127.0.0.1:1", "m")
	stream, err := p.Stream(context.Background(), Request{Messages: []Message{SystemText("")}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	_, events := collect(t, stream)
	if len(events) != 1 || events[0].Type != EventError || events[0].Err == nil {
		t.Fatalf("events=%+v", events)
	}
}

func TestOpenAIProviderName(t *testing.T) {
	if got := NewOpenAIProvider("k", "", "gpt-4o").Name(); got != "OpenAI (gpt-4o)" {
		t.Fatalf("Name()=%q", got)
	}
	if got := NewOpenAIProvider("k", "http://localhost:11434/v1", "llama3").Name(); got != "OpenAI-compatible (llama3 @ http://localhost:11434/v1)" {
		t.Fatalf("Name()=%q", got)
	}
}

func TestStreamCancelledBeforeServerReplies(t *testing.T) {
	release := make(chan struct{})
	p := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := p.Stream(ctx, Request{Messages: []Message{UserText("hi")}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	cancel()
	if _, err := stream.Recv(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Recv err=%v, want context.Canceled", err)
	}
	stream.Close()
}
