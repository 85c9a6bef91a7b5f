package app_test

import (
	"testing"
	"time"

	"ota_reviews/internal/app"
	"ota_reviews/internal/domain"
)

func sampleResult() *domain.AnalysisResult {
	reviews := []domain.Review{
		{
			ID: "fp1", Source: domain.SourceRakuten, HotelID: "H1",
			Text: "清潔で快適でした", Rating: fp(4.5), PostedAt: day(2024, 3, 1),
			SentimentScore: fp(0.5), SentimentLabel: domain.SentimentPositive, Confidence: fp(0.8),
		},
		{
			ID: "fp2", Source: domain.SourceBooking, HotelID: "H1",
			Text: "staff was rude", Rating: fp(1.5), PostedAt: day(2024, 3, 2),
			SentimentScore: fp(-0.5), SentimentLabel: domain.SentimentNegative, Confidence: fp(0.75),
		},
	}
	outcomes := []domain.FetchOutcome{
		{Source: domain.SourceRakuten, Status: domain.FetchSuccess, Count: 1, Elapsed: 100 * time.Millisecond},
		{Source: domain.SourceBooking, Status: domain.FetchSuccess, Count: 1, Elapsed: 150 * time.Millisecond},
		{Source: domain.SourceJalan, Status: domain.FetchFailed,
			Err: domain.NewSourceError(domain.SourceJalan, domain.ErrKindRateLimited, nil)},
	}
	return &domain.AnalysisResult{
		RunID:      "run-1",
		HotelID:    "H1",
		Reviews:    reviews,
		Outcomes:   outcomes,
		Stats:      app.Rollup(reviews, []domain.Source{domain.SourceRakuten, domain.SourceBooking, domain.SourceJalan}),
		AnalyzedAt: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAssemble_SectionOrder(t *testing.T) {
	a := app.NewReportAssembler(nil)
	sections := a.Assemble(sampleResult())

	want := []string{"サマリー", "口コミ一覧", "キーワード分析", "RAKUTEN分析", "BOOKING分析", "JALAN分析"}
	if len(sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(sections))
	}
	for i, name := range want {
		if sections[i].Name != name {
			t.Fatalf("section %d = %q, want %q", i, sections[i].Name, name)
		}
	}
}

func TestAssemble_SummaryCharts(t *testing.T) {
	a := app.NewReportAssembler(nil)
	summary := a.Assemble(sampleResult())[0]

	kinds := map[domain.ChartKind]bool{}
	for _, ch := range summary.Charts {
		kinds[ch.Kind] = true
	}
	if !kinds[domain.ChartPie] || !kinds[domain.ChartColumn] || !kinds[domain.ChartLine] {
		t.Fatalf("summary should carry pie, column and line charts: %+v", summary.Charts)
	}

	// Chart data must reconcile with the distribution counts.
	for _, ch := range summary.Charts {
		if ch.Kind != domain.ChartPie {
			continue
		}
		total := 0.0
		for _, p := range ch.Points {
			total += p.Value
		}
		if total != 2 {
			t.Fatalf("sentiment pie sums to %v, want 2", total)
		}
	}
}

func TestAssemble_ListingFormatRule(t *testing.T) {
	a := app.NewReportAssembler(nil)
	listing := a.Assemble(sampleResult())[1]

	if len(listing.Table.Rows) != 2 {
		t.Fatalf("expected one row per review, got %d", len(listing.Table.Rows))
	}
	if len(listing.Formats) != 1 {
		t.Fatalf("expected one format rule, got %d", len(listing.Formats))
	}
	rule := listing.Formats[0]
	if listing.Table.Header[rule.Column] != "感情スコア" {
		t.Fatalf("format rule must target the sentiment score column, targets %q", listing.Table.Header[rule.Column])
	}
	if len(rule.Thresholds) != 2 || rule.Thresholds[0] != -0.2 || rule.Thresholds[1] != 0.2 {
		t.Fatalf("band thresholds must match the classification thresholds: %v", rule.Thresholds)
	}
	if len(rule.Colors) != 3 {
		t.Fatalf("expected a 3-color scale, got %v", rule.Colors)
	}
}

func TestAssemble_FailedSourceSection(t *testing.T) {
	a := app.NewReportAssembler(nil)
	sections := a.Assemble(sampleResult())
	jalan := sections[5]

	foundStatus, foundErr := false, false
	for _, row := range jalan.Table.Rows {
		switch row[0] {
		case "ステータス":
			foundStatus = true
			if row[1] != "failed" {
				t.Fatalf("status cell = %v", row[1])
			}
		case "エラー":
			foundErr = true
		}
	}
	if !foundStatus || !foundErr {
		t.Fatalf("failed source section must show status and error rows")
	}
}
