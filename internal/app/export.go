package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
)

type indicatorPoint struct {
	at    time.Time
	price float64
	rsi   float64
	hasP  bool
	hasR  bool
}

// Export renders the numeric indicator series of one telemetry bucket as
// a PNG chart. When opts.Bucket is empty the newest bucket is used.
func (a *App) Export(opts ExportOptions) error {
	if opts.PNGPath == "" {
		return errors.New("--png must be provided")
	}

	store := a.newTelemetryStore()

	name := opts.Bucket
	if name == "" {
		buckets, err := store.ListBuckets()
		if err != nil {
			return err
		}
		if len(buckets) == 0 {
			return errors.New("no telemetry buckets found")
		}
		name = buckets[len(buckets)-1]
	}

	path, err := store.BucketPath(name)
	if err != nil {
		return err
	}

	points, err := readIndicatorPoints(path, opts.Symbol)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Str("bucket", name).Msg("no rows with numeric indicators to chart")
		return nil
	}

	a.Logger.Info().Str("bucket", name).Int("points", len(points)).Msg("exporting indicator chart")
	return writeIndicatorPNG(opts.PNGPath, points)
}

func readIndicatorPoints(path, symbol string) ([]indicatorPoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bucket: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"received_at", "symbol", "price", "rsi"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("bucket header missing %q column", required)
		}
	}

	var points []indicatorPoint
	for _, row := range rows[1:] {
		if symbol != "" && row[col["symbol"]] != symbol {
			continue
		}

		at, err := time.Parse(time.RFC3339, row[col["received_at"]])
		if err != nil {
			continue
		}

		var p indicatorPoint
		p.at = at
		if _, err := fmt.Sscanf(row[col["price"]], "%f", &p.price); err == nil && row[col["price"]] != "" {
			p.hasP = true
		}
		if _, err := fmt.Sscanf(row[col["rsi"]], "%f", &p.rsi); err == nil && row[col["rsi"]] != "" {
			p.hasR = true
		}
		if p.hasP || p.hasR {
			points = append(points, p)
		}
	}
	return points, nil
}

func writeIndicatorPNG(path string, points []indicatorPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var (
		priceX, rsiX []time.Time
		priceY, rsiY []float64
	)
	for _, p := range points {
		if p.hasP {
			priceX = append(priceX, p.at)
			priceY = append(priceY, p.price)
		}
		if p.hasR {
			rsiX = append(rsiX, p.at)
			rsiY = append(rsiY, p.rsi)
		}
	}

	var series []chart.Series
	if len(priceY) > 1 {
		series = append(series, chart.TimeSeries{
			Name:    "Price",
			XValues: priceX,
			YValues: priceY,
		})
	}
	if len(rsiY) > 1 {
		series = append(series, chart.TimeSeries{
			Name:    "RSI",
			XValues: rsiX,
			YValues: rsiY,
			YAxis:   chart.YAxisSecondary,
		})
	}
	if len(series) == 0 {
		return errors.New("not enough data points to chart")
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Price",
		},
		YAxisSecondary: chart.YAxis{
			Name: "RSI",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
