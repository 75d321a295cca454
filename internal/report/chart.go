// internal/report/chart.go
package report

import (
	"bytes"

	chart "github.com/wcharczuk/go-chart/v2"
)

// renderAuthorChart renders the ranking as a PNG bar chart, one bar per
// author.
func renderAuthorChart(ranking []authorRank) ([]byte, error) {
	bars := make([]chart.Value, 0, len(ranking))
	maxVal := 0
	for _, r := range ranking {
		if r.Count > maxVal {
			maxVal = r.Count
		}
		label := r.GithubLogin
		if r.TelegramName != "" {
			label = r.TelegramName
		}
		bars = append(bars, chart.Value{Value: float64(r.Count), Label: label})
	}
	// Keep the range valid even when every count is zero.
	yMax := float64(maxVal)
	if yMax <= 0 {
		yMax = 1
	}
	graph := chart.BarChart{
		Width:    1100,
		Height:   600,
		BarWidth: 56,
		Background: chart.Style{Padding: chart.Box{
			Top:    50,
			Left:   16,
			Right:  16,
			Bottom: 0,
		}},
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: yMax}},
		Bars:  bars,
	}
	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
