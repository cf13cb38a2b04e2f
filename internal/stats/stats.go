package stats

import (
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"example.com/canview/internal/rows"
)

// ThermalMessageID is the message carrying heat unit readings.
const ThermalMessageID = "2cf"

// Point is one sample of a series. Time is the CSV time text.
type Point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// Series is a named, time-ordered list of points.
type Series struct {
	Name   string  `json:"name"`
	Unit   string  `json:"unit,omitempty"`
	Points []Point `json:"points"`
}

// Thermal holds the anode and casing heat unit ratio series.
type Thermal struct {
	Anode  Series `json:"anode"`
	Casing Series `json:"casing"`
}

// ThermalSeries extracts HUR values from every thermal state message. The
// index byte selects the series: 0x10 and 0x20 are anode, 0x11 and 0x21 are
// casing. Bytes 5-6 hold the ratio as uint16 little endian in hundredths.
func ThermalSeries(table rows.Table) Thermal {
	out := Thermal{
		Anode:  Series{Name: "Anode Heat", Unit: "%"},
		Casing: Series{Name: "Casing Heat", Unit: "%"},
	}
	idx := rows.NewHeaderIndex(table.Headers)
	if idx.Index(rows.ColBuffer) < 0 {
		return out
	}
	for _, raw := range table.Rows {
		id, data, ok := rows.ParseBuffer(idx.Get(raw, rows.ColBuffer))
		if !ok || strings.ToLower(id) != ThermalMessageID {
			continue
		}
		bytes := strings.Fields(data)
		if len(bytes) < 7 {
			continue
		}
		index, err := strconv.ParseUint(bytes[0], 16, 8)
		if err != nil {
			continue
		}
		lo, err1 := strconv.ParseUint(bytes[5], 16, 8)
		hi, err2 := strconv.ParseUint(bytes[6], 16, 8)
		if err1 != nil || err2 != nil {
			continue
		}
		p := Point{Time: idx.Get(raw, rows.ColTime), Value: float64(lo|hi<<8) / 100}
		switch index {
		case 0x10, 0x20:
			out.Anode.Points = append(out.Anode.Points, p)
		case 0x11, 0x21:
			out.Casing.Points = append(out.Casing.Points, p)
		}
	}
	sortByTime(out.Anode.Points)
	sortByTime(out.Casing.Points)
	return out
}

// MessageRate counts rows with a buffer per second. The second is the time
// text up to its first '.'.
func MessageRate(table rows.Table) Series {
	out := Series{Name: "Messages per second", Unit: "msg/s"}
	idx := rows.NewHeaderIndex(table.Headers)
	if idx.Index(rows.ColBuffer) < 0 {
		return out
	}
	counts := make(map[string]int)
	for _, raw := range table.Rows {
		t := idx.Get(raw, rows.ColTime)
		if t == "" || idx.Get(raw, rows.ColBuffer) == "" {
			continue
		}
		key, _, _ := strings.Cut(t, ".")
		counts[key]++
	}
	for key, n := range counts {
		out.Points = append(out.Points, Point{Time: key, Value: float64(n)})
	}
	sortByTime(out.Points)
	return out
}

func sortByTime(points []Point) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
}

var palette = []drawing.Color{chart.ColorBlue, chart.ColorRed, chart.ColorGreen, chart.ColorOrange}

// ErrNoData is returned when no series has a point to draw.
var ErrNoData = errors.New("no data points")

// RenderPNG draws the series as a line chart. Points are placed on a shared
// axis of the sorted distinct times, labelled with the time text.
func RenderPNG(w io.Writer, title string, series ...Series) error {
	times := distinctTimes(series)
	if len(times) == 0 {
		return ErrNoData
	}
	pos := make(map[string]float64, len(times))
	for i, t := range times {
		pos[t] = float64(i)
	}

	var chartSeries []chart.Series
	unit := ""
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		if unit == "" {
			unit = s.Unit
		}
		xs := make([]float64, 0, len(s.Points)+1)
		ys := make([]float64, 0, len(s.Points)+1)
		for _, p := range s.Points {
			xs = append(xs, pos[p.Time])
			ys = append(ys, p.Value)
		}
		if len(xs) == 1 {
			// a single point has no x range; draw it as a short flat segment
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		col := palette[i%len(palette)]
		chartSeries = append(chartSeries, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    2,
			},
		})
	}

	ch := chart.Chart{
		Title:      title,
		Width:      1024,
		Height:     480,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 48}},
		XAxis:      chart.XAxis{Ticks: timeTicks(times)},
		YAxis:      chart.YAxis{Name: unit},
		Series:     chartSeries,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

func distinctTimes(series []Series) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range series {
		for _, p := range s.Points {
			if _, ok := seen[p.Time]; ok {
				continue
			}
			seen[p.Time] = struct{}{}
			out = append(out, p.Time)
		}
	}
	sort.Strings(out)
	return out
}

// timeTicks labels at most ten evenly spaced positions.
func timeTicks(times []string) []chart.Tick {
	step := len(times) / 10
	if step < 1 {
		step = 1
	}
	var ticks []chart.Tick
	for i := 0; i < len(times); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: shortTime(times[i])})
	}
	if len(times) == 1 {
		ticks = append(ticks, chart.Tick{Value: 1, Label: ""})
	}
	return ticks
}

// shortTime drops a leading date so labels stay narrow.
func shortTime(t string) string {
	if _, clock, ok := strings.Cut(t, " "); ok {
		return clock
	}
	return t
}
