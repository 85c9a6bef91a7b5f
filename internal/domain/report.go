package domain

// ChartKind names the chart shape a report section requests. The
// workbook writer decides how to realize it.
type ChartKind string

const (
	ChartPie    ChartKind = "pie"
	ChartColumn ChartKind = "column"
	ChartLine   ChartKind = "line"
)

// ChartPoint is one (category, value) tuple of a chart series.
type ChartPoint struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

type Chart struct {
	Title  string       `json:"title"`
	Kind   ChartKind    `json:"kind"`
	Points []ChartPoint `json:"points"`
}

// Table is a structured grid. Rows hold cell values ready for the
// writer; no formatting is applied here.
type Table struct {
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// FormatRule is a declarative conditional-formatting hint for one
// table column: Thresholds split the value range into len(Colors)
// bands. The writer may realize it as a color scale or ignore it.
type FormatRule struct {
	Column     int       `json:"column"`
	Thresholds []float64 `json:"thresholds"`
	Colors     []string  `json:"colors"`
}

// Section is one abstract report sheet: a table, optional chart data,
// and optional formatting rules. Sections are ordered; the writer
// materializes them in sequence.
type Section struct {
	Name    string       `json:"name"`
	Table   Table        `json:"table"`
	Charts  []Chart      `json:"charts,omitempty"`
	Formats []FormatRule `json:"formats,omitempty"`
}
