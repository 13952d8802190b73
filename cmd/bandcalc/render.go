package main

import (
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"BandView/internal/domain/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func render(w io.Writer, format string, series []models.OHLCV, points []models.BandPoint, tail int) error {
	if tail > 0 && tail < len(points) {
		series = series[len(series)-tail:]
		points = points[len(points)-tail:]
	}
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Close", "Basis", "Upper", "Lower"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for i, p := range points {
		t.AppendRow(table.Row{
			time.UnixMilli(p.Time).UTC().Format("2006-01-02 15:04"),
			num(series[i].Close),
			num(p.Basis),
			num(p.Upper),
			num(p.Lower),
		})
	}
	t.Render()
	return nil
}

// num leaves undefined values blank.
func num(v float64) string {
	if models.NullableFloat(v) == nil {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
