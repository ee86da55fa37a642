package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
)

// InsightProvider generates the free-text insight shown at reveal. Callers
// bound it with a context deadline and fall back locally on any failure;
// provider errors never reach the end user.
type InsightProvider interface {
	Generate(ctx context.Context, zone Zone, primaryCluster string, tendencies map[string]string) (string, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChatInsightProvider calls an OpenAI-compatible chat completion endpoint.
type ChatInsightProvider struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   HTTPClient
}

func NewChatInsightProvider(endpoint, apiKey, model string, client HTTPClient) *ChatInsightProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &ChatInsightProvider{Endpoint: endpoint, APIKey: apiKey, Model: model, Client: client}
}

const insightSystemPrompt = "Du bist der Resonance Insight-Generator. Schreibe warm, positiv, spielerisch auf Deutsch. Keine Diagnosen, kein Urteil, keine Schuld. Alles ist Resonanz, nicht Bewertung. Halte es kurz (3-4 Sätze)."

var zoneWords = map[Zone]string{
	ZoneFlow:  "im Flow",
	ZoneSpark: "voller Funken",
	ZoneTalk:  "im Austausch",
}

func (p *ChatInsightProvider) Generate(ctx context.Context, zone Zone, primaryCluster string, tendencies map[string]string) (string, error) {
	if strings.TrimSpace(p.Endpoint) == "" {
		return "", NewInvalidError("insight endpoint not configured")
	}
	prompt := fmt.Sprintf("Erstelle einen kurzen Insight Drop für ein Paar. Ihre Resonanz im Bereich %q ist %q. Schreibe genau 3 Sätze: 1) Eine warme Beobachtung 2) Eine Stärke 3) Ein kleiner Impuls. Keine Prozente, keine Wertung. Max 60 Wörter.", primaryCluster, zoneWords[zone])
	payload := map[string]any{
		"model":       p.Model,
		"temperature": 0.7,
		"messages": []map[string]string{
			{"role": "system", "content": insightSystemPrompt},
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return "", NewBadGatewayError(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", NewBadGatewayError(string(b))
	}
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return "", NewBadGatewayError(err.Error())
	}
	if len(cc.Choices) == 0 {
		return "", NewBadGatewayError("no choices")
	}
	text := strings.TrimSpace(cc.Choices[0].Message.Content)
	if text == "" {
		return "", NewBadGatewayError("empty completion")
	}
	return text, nil
}

var zoneSentences = map[Zone][]string{
	ZoneFlow: {
		"Hier seid ihr auf derselben Wellenlänge.",
		"Das trägt euch im Alltag.",
		"Das funktioniert oft ohne große Erklärung.",
	},
	ZoneSpark: {
		"Das ist euer Sweet Spot: unterschiedlich genug, um spannend zu bleiben.",
		"Hier entsteht Anziehung durch Kontrast.",
		"Ein Unterschied, der euch lebendig macht.",
	},
	ZoneTalk: {
		"Hier lohnt sich eine gemeinsame Sprache.",
		"Kein Problem — eher ein Feld, wo Abstimmung viel bewirken kann.",
		"Wenn ihr hier kurz übersetzt, wird's schnell leichter.",
	},
}

// ZoneSentence picks one of the fixed filler sentences for a zone.
func ZoneSentence(zone Zone, rng *rand.Rand) string {
	pool := zoneSentences[zone]
	if len(pool) == 0 {
		pool = zoneSentences[ZoneFlow]
	}
	return pool[rng.Intn(len(pool))]
}

// FallbackInsight is the locally generated insight used whenever the
// provider is unavailable or slow.
func FallbackInsight(zone Zone, rng *rand.Rand) string {
	return "Eure Verbindung zeigt sich hier auf besondere Weise. " + ZoneSentence(zone, rng) + " Lasst euch überraschen, was ihr zusammen entdecken werdet."
}
