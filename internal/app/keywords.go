package app

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"ota_reviews/internal/domain"
)

// Terms too generic to rank: every hotel review mentions the hotel.
var defaultStopTerms = []string{
	"ホテル", "宿", "部屋", "料理", "食事", "朝食", "夕食", "風呂", "温泉",
	"スタッフ", "フロント", "サービス", "施設", "宿泊", "利用", "予約",
	"こと", "もの", "ため", "よう", "そう", "とても", "すごく", "かなり",
	"ちょっと", "少し", "とき", "ところ", "場合", "お客様",
	"hotel", "room", "staff", "service", "stay", "food", "breakfast",
	"the", "and", "was", "were", "very", "with", "this", "that",
}

var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	// Trailing Japanese case particles left attached after a
	// whitespace split.
	particleRe = regexp.MustCompile(`[はがをにでともからまで]+$`)
)

// KeywordExtractor derives ranked (term, weight) signals from review
// text. Weight is frequency normalized by the most frequent term; ties
// keep first-seen order among the input collection.
type KeywordExtractor struct {
	stop   map[string]struct{}
	minLen int
}

// NewKeywordExtractor builds an extractor with the default stop-term
// set plus any extra terms the caller wants excluded.
func NewKeywordExtractor(extraStop ...string) *KeywordExtractor {
	stop := make(map[string]struct{}, len(defaultStopTerms)+len(extraStop))
	for _, t := range defaultStopTerms {
		stop[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range extraStop {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			stop[t] = struct{}{}
		}
	}
	return &KeywordExtractor{stop: stop, minLen: 2}
}

// Extract ranks terms across the given texts. topN <= 0 returns every
// qualifying term; an empty input yields an empty slice, never an
// error.
func (e *KeywordExtractor) Extract(texts []string, topN, minFreq int) []domain.Keyword {
	if minFreq < 1 {
		minFreq = 1
	}
	freq := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, text := range texts {
		for _, tok := range e.tokenize(text) {
			if _, ok := firstSeen[tok]; !ok {
				firstSeen[tok] = order
				order++
			}
			freq[tok]++
		}
	}

	terms := make([]string, 0, len(freq))
	maxFreq := 0
	for t, n := range freq {
		if n < minFreq {
			continue
		}
		terms = append(terms, t)
		if n > maxFreq {
			maxFreq = n
		}
	}
	if len(terms) == 0 {
		return []domain.Keyword{}
	}

	sort.SliceStable(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return firstSeen[terms[i]] < firstSeen[terms[j]]
	})
	if topN > 0 && len(terms) > topN {
		terms = terms[:topN]
	}

	out := make([]domain.Keyword, 0, len(terms))
	for _, t := range terms {
		out = append(out, domain.Keyword{
			Term:   t,
			Count:  freq[t],
			Weight: float64(freq[t]) / float64(maxFreq),
		})
	}
	return out
}

// ExtractByLabel runs a full extraction over only the reviews carrying
// the given sentiment label, so the ranked terms reflect that
// polarity's own frequencies rather than a post-hoc split.
func (e *KeywordExtractor) ExtractByLabel(reviews []domain.Review, label domain.SentimentLabel, topN int) []domain.Keyword {
	texts := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		if rv.SentimentLabel == label {
			texts = append(texts, rv.Text)
		}
	}
	return e.Extract(texts, topN, 1)
}

func (e *KeywordExtractor) tokenize(text string) []string {
	clean := punctRe.ReplaceAllString(norm.NFKC.String(text), " ")
	var toks []string
	for _, field := range strings.Fields(clean) {
		tok := particleRe.ReplaceAllString(field, "")
		lower := strings.ToLower(tok)
		if utf8.RuneCountInString(lower) < e.minLen {
			continue
		}
		if _, skip := e.stop[lower]; skip {
			continue
		}
		toks = append(toks, lower)
	}
	return toks
}
