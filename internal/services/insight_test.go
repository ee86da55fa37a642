package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"testing"
	"time"
)

type stubHTTPClient struct {
	status  int
	body    string
	err     error
	lastReq *http.Request
}

func (c *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{
		StatusCode: c.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(c.body))),
		Header:     http.Header{},
	}, nil
}

func TestChatInsightProviderParsesCompletion(t *testing.T) {
	client := &stubHTTPClient{
		status: 200,
		body:   `{"choices":[{"message":{"content":"  Ihr seid ein starkes Team.  "}}]}`,
	}
	p := NewChatInsightProvider("https://llm.example/v1/chat/completions", "key", "", client)
	text, err := p.Generate(context.Background(), ZoneFlow, "words", map[string]string{"words": TendencyHigh})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Ihr seid ein starkes Team." {
		t.Fatalf("text = %q", text)
	}
	if got := client.lastReq.Header.Get("Authorization"); got != "Bearer key" {
		t.Errorf("auth header = %q", got)
	}
	if client.lastReq.Method != http.MethodPost {
		t.Errorf("method = %s", client.lastReq.Method)
	}
}

func TestChatInsightProviderErrors(t *testing.T) {
	cases := []struct {
		name   string
		client *stubHTTPClient
	}{
		{"transport", &stubHTTPClient{err: errors.New("boom")}},
		{"status", &stubHTTPClient{status: 500, body: "upstream down"}},
		{"no choices", &stubHTTPClient{status: 200, body: `{"choices":[]}`}},
		{"empty text", &stubHTTPClient{status: 200, body: `{"choices":[{"message":{"content":"  "}}]}`}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := NewChatInsightProvider("https://llm.example", "", "", c.client)
			if _, err := p.Generate(context.Background(), ZoneTalk, "time", nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type failingInsight struct{}

func (failingInsight) Generate(context.Context, Zone, string, map[string]string) (string, error) {
	return "", errors.New("provider unavailable")
}

type slowInsight struct{}

func (slowInsight) Generate(ctx context.Context, _ Zone, _ string, _ map[string]string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestFinishFallsBackWhenProviderFails(t *testing.T) {
	svc, _ := newTestCycleService(t)
	svc.insight = failingInsight{}
	cycle, _ := svc.Activate("c1", "words_test", "u1")
	svcSubmitBoth(t, svc, cycle.ID)

	c, err := svc.GetCycle(cycle.ID)
	if err != nil {
		t.Fatalf("GetCycle: %v", err)
	}
	if c.Result == nil || c.Result.InsightText == "" {
		t.Fatal("fallback insight must be set")
	}
	if !strings.Contains(c.Result.InsightText, "Eure Verbindung") {
		t.Errorf("unexpected fallback text %q", c.Result.InsightText)
	}
}

func TestFinishFallsBackWhenProviderHangs(t *testing.T) {
	svc, _ := newTestCycleService(t)
	svc.insight = slowInsight{}
	svc.insightTimeout = 10 * time.Millisecond
	cycle, _ := svc.Activate("c1", "words_test", "u1")

	done := make(chan struct{})
	go func() {
		svcSubmitBoth(t, svc, cycle.ID)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submit blocked on insight provider")
	}

	c, _ := svc.GetCycle(cycle.ID)
	if c.Result == nil || c.Result.InsightText == "" {
		t.Fatal("fallback insight must be set after timeout")
	}
}

func TestZoneSentencePools(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, zone := range []Zone{ZoneFlow, ZoneSpark, ZoneTalk} {
		pool := zoneSentences[zone]
		s := ZoneSentence(zone, rng)
		found := false
		for _, cand := range pool {
			if cand == s {
				found = true
			}
		}
		if !found {
			t.Errorf("sentence %q not in pool for %s", s, zone)
		}
	}
}
