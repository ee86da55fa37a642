//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("RESONANCE_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:8080"
}

func doPost(t *testing.T, client *http.Client, url string, body any, out any) {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		t.Fatalf("POST %s: status %d: %s", url, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s: %v (%s)", url, err, raw)
		}
	}
}

func doGet(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		t.Fatalf("GET %s: status %d: %s", url, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s: %v (%s)", url, err, raw)
		}
	}
}

func TestCoupleJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}
	base := baseURL()

	var health struct {
		OK bool `json:"ok"`
	}
	doGet(t, client, base+"/health", &health)
	if !health.OK {
		t.Fatal("server not healthy")
	}

	suffix := time.Now().UnixNano()
	var reg struct {
		User struct {
			ID         string `json:"id"`
			InviteCode string `json:"invite_code"`
		} `json:"user"`
		Token string `json:"token"`
	}
	doPost(t, client, base+"/api/users/register", map[string]string{
		"name":       fmt.Sprintf("Ava %d", suffix),
		"birth_date": "1995-07-30",
		"birth_time": "08:30",
	}, &reg)
	if reg.User.InviteCode == "" || reg.Token == "" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	var join struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		CoupleID    string `json:"couple_id"`
		PartnerName string `json:"partner_name"`
	}
	doPost(t, client, base+"/api/invite/join", map[string]string{
		"invite_code": reg.User.InviteCode,
		"name":        fmt.Sprintf("Ben %d", suffix),
		"birth_date":  "1993-01-05",
	}, &join)
	if join.CoupleID == "" {
		t.Fatal("join did not return couple id")
	}

	var couple struct {
		Couple struct {
			Interpretation string `json:"interpretation"`
		} `json:"couple"`
	}
	doGet(t, client, base+"/api/couple/"+join.CoupleID, &couple)
	if couple.Couple.Interpretation == "" {
		t.Fatal("couple has no interpretation")
	}

	var listing struct {
		Quizzes []struct {
			ID string `json:"id"`
		} `json:"quizzes"`
	}
	doGet(t, client, base+"/api/quizzes", &listing)
	if len(listing.Quizzes) == 0 {
		t.Fatal("no quizzes in catalog")
	}

	var quiz struct {
		ID        string `json:"id"`
		Questions []struct {
			ID      string `json:"id"`
			Options []struct {
				ID string `json:"id"`
			} `json:"options"`
		} `json:"questions"`
	}
	doGet(t, client, base+"/api/quizzes/"+listing.Quizzes[0].ID, &quiz)

	var cycle struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	doPost(t, client, base+"/api/quiz/activate", map[string]string{
		"couple_id": join.CoupleID,
		"quiz_id":   quiz.ID,
		"user_id":   reg.User.ID,
	}, &cycle)
	if cycle.State != "activated" {
		t.Fatalf("cycle state = %s", cycle.State)
	}

	answers := func(pick int) []map[string]string {
		var out []map[string]string
		for _, q := range quiz.Questions {
			opt := q.Options[pick%len(q.Options)]
			out = append(out, map[string]string{"question_id": q.ID, "option_id": opt.ID})
		}
		return out
	}

	doPost(t, client, base+"/api/quiz/submit", map[string]any{
		"cycle_id": cycle.ID,
		"user_id":  reg.User.ID,
		"answers":  answers(0),
	}, &cycle)
	if cycle.State != "one_completed" {
		t.Fatalf("state after first submit = %s", cycle.State)
	}

	var finished struct {
		State  string `json:"state"`
		Result *struct {
			PrimaryCluster string `json:"primary_cluster"`
			Zone           string `json:"zone"`
			InsightText    string `json:"insight_text"`
		} `json:"result"`
		RewardChoices []struct {
			Category string `json:"category"`
		} `json:"reward_choices"`
	}
	doPost(t, client, base+"/api/quiz/submit", map[string]any{
		"cycle_id": cycle.ID,
		"user_id":  join.User.ID,
		"answers":  answers(1),
	}, &finished)
	if finished.State != "ready_to_reveal" || finished.Result == nil {
		t.Fatalf("state after both submits = %s", finished.State)
	}
	if finished.Result.InsightText == "" {
		t.Fatal("missing insight text")
	}

	doPost(t, client, base+"/api/quiz/reveal/"+cycle.ID, map[string]string{}, &finished)
	if finished.State != "revealed" {
		t.Fatalf("state after reveal = %s", finished.State)
	}
	if len(finished.RewardChoices) != 3 {
		t.Fatalf("rewards = %d, want 3", len(finished.RewardChoices))
	}

	var garden struct {
		Items []struct {
			ItemID string `json:"item_id"`
		} `json:"items"`
	}
	doPost(t, client, base+"/api/garden/place", map[string]any{
		"couple_id":  join.CoupleID,
		"user_id":    join.User.ID,
		"item_id":    finished.RewardChoices[0].Category,
		"position_x": 0.5,
		"position_y": 0.5,
	}, &garden)
	if len(garden.Items) == 0 {
		t.Fatal("garden item not placed")
	}

	var stats struct {
		RevealedCount int `json:"revealed_count"`
	}
	doGet(t, client, base+"/api/stats/"+join.CoupleID, &stats)
	if stats.RevealedCount < 1 {
		t.Fatalf("revealed count = %d", stats.RevealedCount)
	}

	var wheel struct {
		Nodes []struct {
			QuizID         string `json:"quiz_id"`
			TimesCompleted int    `json:"times_completed"`
		} `json:"nodes"`
	}
	doGet(t, client, fmt.Sprintf("%s/api/quiz/wheel/%s/%s", base, join.CoupleID, reg.User.ID), &wheel)
	found := false
	for _, n := range wheel.Nodes {
		if n.QuizID == quiz.ID && n.TimesCompleted >= 1 {
			found = true
		}
	}
	if !found {
		t.Fatal("wheel does not reflect completed cycle")
	}
}
