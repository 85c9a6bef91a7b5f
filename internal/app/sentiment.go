package app

import (
	"strings"

	"ota_reviews/internal/domain"
)

// Label thresholds, exclusive on both sides: a score of exactly 0.2 or
// -0.2 is still neutral.
const (
	positiveThreshold = 0.2
	negativeThreshold = -0.2
)

// Lexicon terms matched by containment, so they work for Japanese text
// without tokenization. The sets cover the vocabulary hotel guests
// actually use; an ML scorer can replace this without touching any
// other component since only the (score, label) contract is shared.
var defaultPositiveTerms = []string{
	"良い", "良かった", "最高", "素晴らしい", "快適", "綺麗", "清潔",
	"親切", "丁寧", "満足", "おすすめ", "オススメ", "便利", "美味しい",
	"きれい", "キレイ", "良好", "心地よい", "おもてなし",
	"感動", "完璧", "素敵", "すてき", "広い", "新しい", "清潔感",
	"コスパ", "お得", "安い", "静か", "落ち着く", "癒", "リラックス",
	"good", "great", "excellent", "clean", "comfortable", "friendly",
	"helpful", "amazing", "wonderful", "perfect", "lovely", "spacious",
}

var defaultNegativeTerms = []string{
	"悪い", "悪かった", "最悪", "ダメ", "だめ", "汚い", "不便", "不満",
	"残念", "がっかり", "ガッカリ", "期待外れ", "古い", "狭い", "うるさい",
	"不親切", "不潔", "臭い", "におい", "ニオイ", "壊れ", "故障",
	"対応が悪", "最低", "ひどい", "酷い", "失望", "二度と", "もう来ない",
	"不快", "不衛生", "カビ", "ゴキブリ", "ボロボロ", "ぼろぼろ",
	"bad", "poor", "dirty", "noisy", "rude", "broken", "terrible",
	"awful", "disappointing", "smelly", "uncomfortable",
}

// SentimentAnalyzer scores review text against positive and negative
// lexicons. Stateless per review; safe for concurrent use.
type SentimentAnalyzer struct {
	positive []string
	negative []string
}

func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{positive: defaultPositiveTerms, negative: defaultNegativeTerms}
}

// Score returns (score in [-1, 1], label, confidence). Empty or
// lexicon-free text scores neutral 0.0; scoring never fails.
func (a *SentimentAnalyzer) Score(text string) (float64, domain.SentimentLabel, float64) {
	if strings.TrimSpace(text) == "" {
		return 0, domain.SentimentNeutral, 0
	}
	lowered := strings.ToLower(text)
	pos := countHits(lowered, a.positive)
	neg := countHits(lowered, a.negative)
	total := pos + neg
	if total == 0 {
		return 0, domain.SentimentNeutral, 0
	}
	score := float64(pos-neg) / float64(total*2)
	conf := 0.7 + float64(total)*0.05
	if conf > 0.95 {
		conf = 0.95
	}
	return score, LabelFor(score), conf
}

// LabelFor maps a score to its classification using the fixed
// thresholds. Both boundaries are exclusive.
func LabelFor(score float64) domain.SentimentLabel {
	switch {
	case score > positiveThreshold:
		return domain.SentimentPositive
	case score < negativeThreshold:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// countHits counts lexicon terms contained in the lower-cased text.
// Lexicon entries are lower-case ASCII or Japanese, so containment on
// the lowered text covers both.
func countHits(lowered string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(lowered, t) {
			n++
		}
	}
	return n
}
