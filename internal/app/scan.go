package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/pipeline"
)

// Scan runs the pipeline once and prints the ranked campaigns.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	runOpts, err := a.pipelineOptions(opts.Ticker)
	if err != nil {
		return err
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

	renderTable(a.Out, res)
	if opts.Detail {
		renderDetail(a.Out, res.Campaigns)
	}
	return nil
}

func renderTable(out io.Writer, res pipeline.Result) {
	if res.AsOf.IsZero() {
		fmt.Fprintln(out, "no purchases found")
		return
	}
	fmt.Fprintf(out, "as of %s, lookback from %s: %d purchases, %d parties (%d excluded, %d fund-like)\n",
		res.AsOf.Format(insider.DateLayout), res.From.Format(insider.DateLayout),
		res.Transactions, res.Parties, res.Excluded, res.FundLike)
	if len(res.Campaigns) == 0 {
		fmt.Fprintln(out, "no campaigns matched the filters")
		return
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "#\tTicker\tWindow\tDays\tScore\tRole\tPeople\tFunds\tTrades\tValue\tKey Roles")
	for i, c := range res.Campaigns {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%d\t%.2f\t%d\t%d\t%d\t%d\t%s\t%s\n",
			i+1,
			c.Ticker,
			windowLabel(c),
			c.SpanDays(),
			c.ClusterScore,
			c.RoleScore,
			c.NumPeople,
			c.NumFunds,
			c.NumTrades,
			insider.FormatUSD(c.TotalValue),
			strings.Join(c.KeyRoles, ","),
		)
	}
	writer.Flush()
}

func renderDetail(out io.Writer, campaigns []cluster.Campaign) {
	for i, c := range campaigns {
		fmt.Fprintf(out, "\n%d. %s %s %s\n", i+1, c.Ticker, c.IssuerName, windowLabel(c))
		for _, p := range c.People {
			fmt.Fprintf(out, "   person  %-50s %s\n", sanitizeInline(p.Label()), insider.FormatUSD(p.Value))
		}
		for _, p := range c.Funds {
			marker := "fund"
			if p.Excluded {
				marker = "excl"
			}
			fmt.Fprintf(out, "   %-6s  %-50s %s\n", marker, sanitizeInline(p.Label()), insider.FormatUSD(p.Value))
		}
	}
}

func windowLabel(c cluster.Campaign) string {
	return c.WindowStart.Format(insider.DateLayout) + ".." + c.WindowEnd.Format(insider.DateLayout)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
