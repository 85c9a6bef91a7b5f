package app

import (
	"fmt"
	"strings"

	"ota_reviews/internal/domain"
)

// Sheet names follow the workbook layout the analysts already use.
const (
	sectionSummary  = "サマリー"
	sectionListing  = "口コミ一覧"
	sectionKeywords = "キーワード分析"
)

var sentimentJP = map[domain.SentimentLabel]string{
	domain.SentimentPositive: "ポジティブ",
	domain.SentimentNeutral:  "ニュートラル",
	domain.SentimentNegative: "ネガティブ",
}

// sentimentScale is the color banding applied to sentiment score
// columns; the bands follow the classification thresholds.
var sentimentScale = domain.FormatRule{
	Thresholds: []float64{-0.2, 0.2},
	Colors:     []string{"#FF0000", "#FFFF00", "#00FF00"},
}

// ReportAssembler turns an AnalysisResult into the ordered section
// sequence a workbook writer consumes: Summary, review listing,
// keyword analysis, then one section per configured source. It only
// shapes data; realizing bytes is the sink's job.
type ReportAssembler struct {
	kw *KeywordExtractor
}

func NewReportAssembler(kw *KeywordExtractor) *ReportAssembler {
	if kw == nil {
		kw = NewKeywordExtractor()
	}
	return &ReportAssembler{kw: kw}
}

func (a *ReportAssembler) Assemble(res *domain.AnalysisResult) []domain.Section {
	sections := []domain.Section{
		a.summarySection(res),
		a.listingSection(res),
		a.keywordSection(res),
	}
	for _, o := range res.Outcomes {
		sections = append(sections, a.sourceSection(res, o))
	}
	return sections
}

func (a *ReportAssembler) summarySection(res *domain.AnalysisResult) domain.Section {
	st := res.Stats
	rows := [][]any{
		{"分析日時", res.AnalyzedAt.Format("2006-01-02 15:04:05")},
		{"分析期間", dateRange(&st)},
		{"総レビュー数", st.TotalCount},
		{"平均評価", fmtAvg(st.AvgRating, "%.2f / 5.0")},
		{"平均感情スコア", fmtAvg(st.AvgSentiment, "%.3f (-1〜1)")},
	}
	for _, label := range []domain.SentimentLabel{domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative} {
		rows = append(rows, []any{sentimentJP[label], st.SentimentDistribution[label]})
	}
	for _, o := range res.Outcomes {
		v := fmt.Sprintf("%d件 (%s)", o.Count, o.Status)
		if o.Err != nil {
			v = fmt.Sprintf("取得失敗: %s", o.Err.Kind)
		}
		rows = append(rows, []any{strings.ToUpper(string(o.Source)), v})
	}

	charts := []domain.Chart{
		{Title: "感情分布", Kind: domain.ChartPie, Points: sentimentPoints(st.SentimentDistribution)},
		{Title: "評価分布", Kind: domain.ChartColumn, Points: ratingPoints(st.RatingDistribution)},
	}
	if len(st.TimeTrend) > 0 {
		pts := make([]domain.ChartPoint, 0, len(st.TimeTrend))
		for _, t := range st.TimeTrend {
			pts = append(pts, domain.ChartPoint{Category: t.Period, Value: t.AvgRating})
		}
		charts = append(charts, domain.Chart{Title: "評価推移", Kind: domain.ChartLine, Points: pts})
	}

	return domain.Section{
		Name:   sectionSummary,
		Table:  domain.Table{Header: []string{"項目", "値"}, Rows: rows},
		Charts: charts,
	}
}

func (a *ReportAssembler) listingSection(res *domain.AnalysisResult) domain.Section {
	rows := make([][]any, 0, len(res.Reviews))
	for _, rv := range res.Reviews {
		date, rating, score := "", any(""), any("")
		if rv.PostedAt != nil {
			date = rv.PostedAt.Format("2006-01-02")
		}
		if rv.Rating != nil {
			rating = *rv.Rating
		}
		if rv.SentimentScore != nil {
			score = *rv.SentimentScore
		}
		rows = append(rows, []any{
			strings.ToUpper(string(rv.Source)),
			date,
			rating,
			sentimentJP[rv.SentimentLabel],
			score,
			rv.Title,
			rv.Text,
			rv.Reviewer,
			rv.TripType,
		})
	}
	scale := sentimentScale
	scale.Column = 4
	return domain.Section{
		Name: sectionListing,
		Table: domain.Table{
			Header: []string{"OTA", "レビュー日", "評価", "感情", "感情スコア", "タイトル", "コメント", "レビュアー", "旅行タイプ"},
			Rows:   rows,
		},
		Formats: []domain.FormatRule{scale},
	}
}

func (a *ReportAssembler) keywordSection(res *domain.AnalysisResult) domain.Section {
	st := res.Stats
	category := make(map[string]string, len(st.PositiveKeywords)+len(st.NegativeKeywords))
	for _, k := range st.PositiveKeywords {
		category[k.Term] = string(domain.SentimentPositive)
	}
	for _, k := range st.NegativeKeywords {
		category[k.Term] = string(domain.SentimentNegative)
	}

	rows := make([][]any, 0, len(st.TopKeywords))
	for _, k := range st.TopKeywords {
		cat := category[k.Term]
		if cat == "" {
			cat = string(domain.SentimentNeutral)
		}
		rows = append(rows, []any{k.Term, k.Count, k.Weight, cat})
	}

	top := st.TopKeywords
	if len(top) > 10 {
		top = top[:10]
	}
	pts := make([]domain.ChartPoint, 0, len(top))
	for _, k := range top {
		pts = append(pts, domain.ChartPoint{Category: k.Term, Value: float64(k.Count)})
	}

	return domain.Section{
		Name: sectionKeywords,
		Table: domain.Table{
			Header: []string{"キーワード", "出現回数", "スコア", "カテゴリ"},
			Rows:   rows,
		},
		Charts: []domain.Chart{{Title: "TOP 10 キーワード", Kind: domain.ChartColumn, Points: pts}},
	}
}

func (a *ReportAssembler) sourceSection(res *domain.AnalysisResult, o domain.FetchOutcome) domain.Section {
	name := strings.ToUpper(string(o.Source)) + "分析"
	stats := res.Stats.PerSource[o.Source]

	var own []domain.Review
	dist := map[domain.SentimentLabel]int{}
	for _, rv := range res.Reviews {
		if rv.Source == o.Source {
			own = append(own, rv)
			dist[rv.SentimentLabel]++
		}
	}

	rows := [][]any{
		{"ステータス", string(o.Status)},
		{"総レビュー数", stats.Count},
		{"平均評価", fmtAvg(stats.AvgRating, "%.2f")},
		{"平均感情スコア", fmtAvg(stats.AvgSentiment, "%.3f")},
	}
	if o.Err != nil {
		rows = append(rows, []any{"エラー", o.Err.Error()})
	}
	for _, label := range []domain.SentimentLabel{domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative} {
		rows = append(rows, []any{sentimentJP[label], dist[label]})
	}

	texts := make([]string, 0, len(own))
	for _, rv := range own {
		texts = append(texts, rv.Text)
	}
	for i, k := range a.kw.Extract(texts, 10, 1) {
		rows = append(rows, []any{fmt.Sprintf("%d. %s", i+1, k.Term), fmt.Sprintf("%d回", k.Count)})
	}

	return domain.Section{
		Name:   name,
		Table:  domain.Table{Header: []string{"項目", "値"}, Rows: rows},
		Charts: []domain.Chart{{Title: name + " 感情分布", Kind: domain.ChartPie, Points: sentimentPoints(dist)}},
	}
}

func sentimentPoints(dist map[domain.SentimentLabel]int) []domain.ChartPoint {
	pts := make([]domain.ChartPoint, 0, 3)
	for _, label := range []domain.SentimentLabel{domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative} {
		pts = append(pts, domain.ChartPoint{Category: sentimentJP[label], Value: float64(dist[label])})
	}
	return pts
}

func ratingPoints(dist map[int]int) []domain.ChartPoint {
	pts := make([]domain.ChartPoint, 0, 7)
	if n := dist[domain.RatingBucketUnknown]; n > 0 {
		pts = append(pts, domain.ChartPoint{Category: "未評価", Value: float64(n)})
	}
	for b := 0; b <= 5; b++ {
		pts = append(pts, domain.ChartPoint{Category: fmt.Sprintf("%d★", b), Value: float64(dist[b])})
	}
	return pts
}

func dateRange(st *domain.StatsRollup) string {
	if st.EarliestAt == nil || st.LatestAt == nil {
		return "不明"
	}
	return st.EarliestAt.Format("2006-01-02") + " 〜 " + st.LatestAt.Format("2006-01-02")
}

func fmtAvg(v *float64, layout string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(layout, *v)
}
