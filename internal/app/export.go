package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

// Export runs a scan and writes the ranked campaigns as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	runOpts, err := a.pipelineOptions(opts.Ticker)
	if err != nil {
		return err
	}
	maxRows := a.Config.ResolveMaxRows(opts.MaxRows)
	if runOpts.Limit == 0 || runOpts.Limit > maxRows {
		runOpts.Limit = maxRows
	}
	if err := runOpts.Validate(); err != nil {
		return err
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := a.newRunner(store).Run(ctx, runOpts)
	if err != nil {
		return err
	}
	if len(res.Campaigns) == 0 {
		a.Logger.Info().Msg("no campaigns to export")
		return nil
	}
	a.Logger.Info().Int("campaigns", len(res.Campaigns)).Msg("exporting campaigns")

	if opts.CSVPath != "" {
		if err := writeFile(opts.CSVPath, func(w io.Writer) error {
			return writeCampaignsCSV(w, res.Campaigns)
		}); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		exp := a.Config.Export
		if err := writeFile(opts.PNGPath, func(w io.Writer) error {
			return writeScoreChart(w, res.Campaigns, exp.ChartTopN, exp.ChartWidth, exp.ChartHeight)
		}); err != nil {
			return err
		}
	}

	return nil
}

var campaignHeader = []string{
	"rank", "ticker", "issuer", "window_start", "window_end", "span_days",
	"cluster_score", "role_score", "key_roles", "num_people", "num_funds",
	"num_trades", "total_shares", "total_value", "fund_ratio", "people", "funds",
}

func writeCampaignsCSV(w io.Writer, campaigns []cluster.Campaign) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(campaignHeader); err != nil {
		return err
	}

	for i, c := range campaigns {
		record := []string{
			strconv.Itoa(i + 1),
			c.Ticker,
			c.IssuerName,
			c.WindowStart.Format(insider.DateLayout),
			c.WindowEnd.Format(insider.DateLayout),
			strconv.Itoa(c.SpanDays()),
			strconv.FormatFloat(c.ClusterScore, 'f', 4, 64),
			strconv.Itoa(c.RoleScore),
			strings.Join(c.KeyRoles, ";"),
			strconv.Itoa(c.NumPeople),
			strconv.Itoa(c.NumFunds),
			strconv.Itoa(c.NumTrades),
			c.TotalShares.String(),
			c.TotalValue.StringFixed(2),
			strconv.FormatFloat(c.FundRatio(), 'f', 4, 64),
			strings.Join(c.PeopleLabels(), "; "),
			strings.Join(c.FundLabels(), "; "),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeScoreChart(w io.Writer, campaigns []cluster.Campaign, topN, width, height int) error {
	if topN > 0 && len(campaigns) > topN {
		campaigns = campaigns[:topN]
	}

	bars := make([]chart.Value, 0, len(campaigns))
	lo, hi := 0.0, 0.0
	for _, c := range campaigns {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s %s", c.Ticker, c.WindowStart.Format("01-02")),
			Value: c.ClusterScore,
		})
		lo = min(lo, c.ClusterScore)
		hi = max(hi, c.ClusterScore)
	}
	if hi <= 0 {
		return errors.New("no positive cluster scores to chart")
	}

	scoreFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.BarChart{
		Title:      "Insider cluster scores",
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   40,
		YAxis: chart.YAxis{
			Name:           "Cluster score",
			Range:          &chart.ContinuousRange{Min: lo, Max: hi * 1.1},
			ValueFormatter: scoreFormatter,
		},
		Bars: bars,
	}

	return graph.Render(chart.PNG, w)
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
