package app_test

import (
	"testing"

	"ota_reviews/internal/app"
	"ota_reviews/internal/domain"
)

func TestSentiment_Japanese(t *testing.T) {
	a := app.NewSentimentAnalyzer()

	score, label, conf := a.Score("部屋が清潔で快適でした")
	if label != domain.SentimentPositive {
		t.Fatalf("expected positive, got %s (score=%v)", label, score)
	}
	if score <= 0.2 {
		t.Fatalf("score should clear the positive threshold, got %v", score)
	}
	if conf < 0.7 || conf > 0.95 {
		t.Fatalf("confidence out of range: %v", conf)
	}

	score, label, _ = a.Score("スタッフの対応が悪い")
	if label != domain.SentimentNegative {
		t.Fatalf("expected negative, got %s (score=%v)", label, score)
	}
	if score >= -0.2 {
		t.Fatalf("score should clear the negative threshold, got %v", score)
	}
}

func TestSentiment_English(t *testing.T) {
	a := app.NewSentimentAnalyzer()

	if _, label, _ := a.Score("clean and comfortable, great location"); label != domain.SentimentPositive {
		t.Fatalf("expected positive, got %s", label)
	}
	if _, label, _ := a.Score("dirty room and rude staff"); label != domain.SentimentNegative {
		t.Fatalf("expected negative, got %s", label)
	}
}

func TestSentiment_NeutralCases(t *testing.T) {
	a := app.NewSentimentAnalyzer()

	// Empty and whitespace-only text never fails, it scores neutral.
	for _, text := range []string{"", "   ", "\n\t"} {
		score, label, conf := a.Score(text)
		if score != 0 || label != domain.SentimentNeutral || conf != 0 {
			t.Fatalf("empty text %q: got (%v, %s, %v)", text, score, label, conf)
		}
	}

	// No lexicon hits at all.
	score, label, conf := a.Score("チェックインは15時です")
	if score != 0 || label != domain.SentimentNeutral || conf != 0 {
		t.Fatalf("lexicon-free text: got (%v, %s, %v)", score, label, conf)
	}

	// One of each polarity cancels out.
	score, label, _ = a.Score("room was clean but noisy")
	if score != 0 || label != domain.SentimentNeutral {
		t.Fatalf("balanced text: got (%v, %s)", score, label)
	}
}

func TestLabelFor_ThresholdsExclusive(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.SentimentLabel
	}{
		{0.2, domain.SentimentNeutral},
		{-0.2, domain.SentimentNeutral},
		{0.21, domain.SentimentPositive},
		{-0.21, domain.SentimentNegative},
		{0, domain.SentimentNeutral},
		{1, domain.SentimentPositive},
		{-1, domain.SentimentNegative},
	}
	for _, c := range cases {
		if got := app.LabelFor(c.score); got != c.want {
			t.Fatalf("LabelFor(%v) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestSentiment_ConfidenceGrowsWithHits(t *testing.T) {
	a := app.NewSentimentAnalyzer()

	_, _, low := a.Score("clean")
	_, _, high := a.Score("clean comfortable friendly helpful amazing wonderful perfect")
	if high <= low {
		t.Fatalf("confidence should grow with lexicon hits: %v <= %v", high, low)
	}
	if high > 0.95 {
		t.Fatalf("confidence must cap at 0.95, got %v", high)
	}
}
