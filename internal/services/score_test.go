package services

import "testing"

func testQuiz() *Quiz {
	return &Quiz{
		ID:            "words_test",
		HiddenCluster: "words",
		Questions: []Question{
			{
				ID: "q1",
				Options: []Option{
					{ID: "a", ClusterScores: map[string]int{"words": 10}},
					{ID: "b", ClusterScores: map[string]int{"touch": 5, "time": 5}},
				},
			},
			{
				ID: "q2",
				Options: []Option{
					{ID: "a", ClusterScores: map[string]int{"words": 10}},
					{ID: "b", ClusterScores: map[string]int{"gifts": 8}},
				},
			},
		},
	}
}

func TestScoreAnswersSumsClusters(t *testing.T) {
	quiz := testQuiz()
	sums := ScoreAnswers(quiz, []Answer{
		{QuestionID: "q1", OptionID: "b"},
		{QuestionID: "q2", OptionID: "a"},
	})
	want := map[string]int{"touch": 5, "time": 5, "words": 10}
	if len(sums) != len(want) {
		t.Fatalf("sums = %v, want %v", sums, want)
	}
	for k, v := range want {
		if sums[k] != v {
			t.Errorf("sums[%s] = %d, want %d", k, sums[k], v)
		}
	}
}

func TestScoreAnswersSkipsUnknown(t *testing.T) {
	quiz := testQuiz()
	sums := ScoreAnswers(quiz, []Answer{
		{QuestionID: "missing", OptionID: "a"},
		{QuestionID: "q1", OptionID: "zzz"},
		{QuestionID: "q1", OptionID: "a"},
	})
	if sums["words"] != 10 {
		t.Fatalf("sums[words] = %d, want 10", sums["words"])
	}
	if len(sums) != 1 {
		t.Fatalf("unexpected clusters: %v", sums)
	}
}

func TestCombineScoresCommutative(t *testing.T) {
	a := map[string]int{"words": 10, "touch": 5}
	b := map[string]int{"touch": 5, "gifts": 8}
	ab := CombineScores(a, b)
	ba := CombineScores(b, a)
	for _, m := range []map[string]int{ab, ba} {
		if m["words"] != 10 || m["touch"] != 10 || m["gifts"] != 8 {
			t.Fatalf("combined = %v", m)
		}
	}
}

func TestNormalizeScoresPeakRelative(t *testing.T) {
	norm := NormalizeScores(map[string]int{"words": 20, "touch": 10, "gifts": 5})
	if norm["words"] != 100 {
		t.Errorf("peak cluster = %d, want 100", norm["words"])
	}
	if norm["touch"] != 50 {
		t.Errorf("touch = %d, want 50", norm["touch"])
	}
	if norm["gifts"] != 25 {
		t.Errorf("gifts = %d, want 25", norm["gifts"])
	}
}

func TestNormalizeScoresSingleCluster(t *testing.T) {
	norm := NormalizeScores(map[string]int{"words": 20})
	if norm["words"] != 100 {
		t.Fatalf("single cluster = %d, want 100", norm["words"])
	}
	if Tendency(norm["words"]) != TendencyHigh {
		t.Fatalf("tendency = %s, want high", Tendency(norm["words"]))
	}
}

func TestNormalizeScoresAllZero(t *testing.T) {
	norm := NormalizeScores(map[string]int{"words": 0, "touch": 0})
	if norm["words"] != 0 || norm["touch"] != 0 {
		t.Fatalf("all-zero normalize = %v", norm)
	}
}

func TestTendencyBands(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, TendencyBuilding},
		{39, TendencyBuilding},
		{40, TendencyMedium},
		{69, TendencyMedium},
		{70, TendencyHigh},
		{100, TendencyHigh},
	}
	for _, c := range cases {
		if got := Tendency(c.score); got != c.want {
			t.Errorf("Tendency(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestPrimaryClusterTieBreak(t *testing.T) {
	if got := PrimaryCluster(map[string]int{"words": 10, "gifts": 10, "touch": 10}); got != "gifts" {
		t.Fatalf("tie break = %s, want gifts", got)
	}
	if got := PrimaryCluster(map[string]int{}); got != "" {
		t.Fatalf("empty = %q, want empty", got)
	}
}

func TestDetermineZone(t *testing.T) {
	cases := []struct {
		name     string
		combined map[string]int
		want     Zone
	}{
		{"uniform", map[string]int{"words": 10, "touch": 10, "time": 10}, ZoneFlow},
		{"wide spread", map[string]int{"words": 30, "touch": 5, "time": 5}, ZoneTalk},
		{"moderate spread", map[string]int{"words": 15, "touch": 10, "time": 8}, ZoneTalk},
		{"narrow spread", map[string]int{"words": 12, "touch": 10, "time": 8}, ZoneSpark},
		{"empty", map[string]int{}, ZoneFlow},
		{"all zero", map[string]int{"words": 0, "touch": 0}, ZoneSpark},
	}
	for _, c := range cases {
		if got := DetermineZone(c.combined); got != c.want {
			t.Errorf("%s: zone = %s, want %s", c.name, got, c.want)
		}
	}
}
