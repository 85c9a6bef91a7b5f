// Package excel renders report sections into an xlsx workbook with
// excelize. One section becomes one sheet; chart data lands in helper
// columns to the right of the table so the embedded charts have cell
// ranges to reference.
package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"ota_reviews/internal/domain"
)

const (
	chartAnchorGap = 1  // columns between table and first chart
	chartDataGap   = 8  // columns between table and hidden chart data
	chartRowSpan   = 16 // vertical rows one embedded chart occupies
)

var chartTypes = map[domain.ChartKind]excelize.ChartType{
	domain.ChartPie:    excelize.Pie,
	domain.ChartColumn: excelize.Col,
	domain.ChartLine:   excelize.Line,
}

type Writer struct {
	dir string
}

var _ domain.ReportSink = (*Writer)(nil)

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write materializes the sections into a timestamped workbook under
// the output directory and returns the file path.
func (w *Writer) Write(ctx context.Context, hotelID string, sections []domain.Section) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(sections) == 0 {
		return "", fmt.Errorf("no sections to write")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("close workbook")
		}
	}()

	for i, sec := range sections {
		name := sheetName(sec.Name, i)
		if i == 0 {
			// reuse the default sheet instead of leaving it empty
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return "", fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("new sheet %s: %w", name, err)
		}
		if err := w.writeSection(f, name, sec); err != nil {
			return "", fmt.Errorf("sheet %s: %w", name, err)
		}
	}

	path := filepath.Join(w.dir, fmt.Sprintf("review_report_%s_%s.xlsx",
		hotelID, time.Now().UTC().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	log.Info().Str("hotel_id", hotelID).Str("path", path).Int("sheets", len(sections)).Msg("report written")
	return path, nil
}

func (w *Writer) writeSection(f *excelize.File, sheet string, sec domain.Section) error {
	if err := w.writeTable(f, sheet, sec.Table); err != nil {
		return err
	}
	for _, rule := range sec.Formats {
		if err := w.applyFormat(f, sheet, sec.Table, rule); err != nil {
			return err
		}
	}
	anchorCol := len(sec.Table.Header) + 1 + chartAnchorGap
	dataCol := len(sec.Table.Header) + 1 + chartDataGap
	for i, ch := range sec.Charts {
		if err := w.addChart(f, sheet, ch, anchorCol, 2+i*chartRowSpan, dataCol+i*3); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeTable(f *excelize.File, sheet string, tbl domain.Table) error {
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for c, h := range tbl.Header {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if n := len(tbl.Header); n > 0 {
		last, _ := excelize.CoordinatesToCellName(n, 1)
		if err := f.SetCellStyle(sheet, "A1", last, headStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(n)
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			return err
		}
	}

	for r, row := range tbl.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	// keep the header visible while scrolling
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

// applyFormat realizes a three-band rule as an xlsx 3-color scale over
// the rule's column. Rules with other band counts are skipped.
func (w *Writer) applyFormat(f *excelize.File, sheet string, tbl domain.Table, rule domain.FormatRule) error {
	if len(rule.Colors) != 3 || len(rule.Thresholds) < 2 || len(tbl.Rows) == 0 {
		return nil
	}
	col, err := excelize.ColumnNumberToName(rule.Column + 1)
	if err != nil {
		return err
	}
	ref := fmt.Sprintf("%s2:%s%d", col, col, len(tbl.Rows)+1)
	mid := (rule.Thresholds[0] + rule.Thresholds[len(rule.Thresholds)-1]) / 2
	return f.SetConditionalFormat(sheet, ref, []excelize.ConditionalFormatOptions{{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num", MinValue: fmtFloat(rule.Thresholds[0]), MinColor: rule.Colors[0],
		MidType: "num", MidValue: fmtFloat(mid), MidColor: rule.Colors[1],
		MaxType: "num", MaxValue: fmtFloat(rule.Thresholds[len(rule.Thresholds)-1]), MaxColor: rule.Colors[2],
	}})
}

func (w *Writer) addChart(f *excelize.File, sheet string, ch domain.Chart, anchorCol, anchorRow, dataCol int) error {
	kind, ok := chartTypes[ch.Kind]
	if !ok || len(ch.Points) == 0 {
		return nil
	}

	catCol, err := excelize.ColumnNumberToName(dataCol)
	if err != nil {
		return err
	}
	valCol, err := excelize.ColumnNumberToName(dataCol + 1)
	if err != nil {
		return err
	}
	for i, p := range ch.Points {
		row := i + 1
		if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", catCol, row), p.Category); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", valCol, row), p.Value); err != nil {
			return err
		}
	}

	last := len(ch.Points)
	anchor, err := excelize.CoordinatesToCellName(anchorCol, anchorRow)
	if err != nil {
		return err
	}
	return f.AddChart(sheet, anchor, &excelize.Chart{
		Type:  kind,
		Title: []excelize.RichTextRun{{Text: ch.Title}},
		Series: []excelize.ChartSeries{{
			Name:       ch.Title,
			Categories: fmt.Sprintf("'%s'!$%s$1:$%s$%d", sheet, catCol, catCol, last),
			Values:     fmt.Sprintf("'%s'!$%s$1:$%s$%d", sheet, valCol, valCol, last),
		}},
	})
}

// sheetName keeps names inside the 31-char xlsx limit and never empty.
func sheetName(name string, idx int) string {
	if name == "" {
		return "Sheet" + strconv.Itoa(idx+1)
	}
	runes := []rune(name)
	if len(runes) > 31 {
		return string(runes[:31])
	}
	return name
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
