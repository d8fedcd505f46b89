package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"

	"stockprob/internal/domain/models"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pctf(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func printUniverse(stocks []models.Instrument) error {
	if format == "json" {
		return printJSON(stocks)
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Code", "Name", "Industry", "Market", "Total MV", "Circ MV"}),
	)
	for _, s := range stocks {
		table.Append([]string{
			s.Code,
			s.Name,
			s.Industry,
			s.Market,
			fmt.Sprintf("%.0f", s.TotalMarketValue()),
			fmt.Sprintf("%.0f", s.CircMarketValue()),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Printf("%d stocks\n", len(stocks))
	return nil
}

func printInfo(si models.StockInfo) error {
	if format == "json" {
		return printJSON(si)
	}
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Field", "Value"}))
	table.Append([]string{"Code", si.Code})
	table.Append([]string{"Name", si.Name})
	table.Append([]string{"Industry", si.Industry})
	table.Append([]string{"Market", si.Market})
	table.Append([]string{"Total MV", fmt.Sprintf("%.2f", si.TotalMV)})
	table.Append([]string{"Circ MV", fmt.Sprintf("%.2f", si.CircMV)})
	return table.Render()
}

// viewCategories orders a period's categories the way tables are stored.
func viewCategories(pv models.PeriodView) []models.Category {
	out := make([]models.Category, 0, len(pv.Categories))
	seen := make(map[models.Category]bool, len(pv.Categories))
	for _, c := range append(append([]models.Category{}, models.Categories...), models.CategoryRange10To19) {
		if _, ok := pv.Categories[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []models.Category
	for c := range pv.Categories {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func printView(code string, view models.ProbabilityView) error {
	if format == "json" {
		return printJSON(view)
	}
	if len(view) == 0 {
		fmt.Printf("No probability data for %s\n", code)
		return nil
	}
	for _, spec := range models.Periods {
		pv, ok := view[spec.ID]
		if !ok {
			continue
		}
		fmt.Printf("\n%s  %s (%s)\n", code, pv.PeriodName, spec.ID)
		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"Category", "Horizon", "Up", "Down", "Equal", "Samples"}),
		)
		for _, c := range viewCategories(pv) {
			cv := pv.Categories[c]
			for _, h := range models.Horizons {
				hv, ok := cv.TimePeriods[h]
				if !ok {
					continue
				}
				table.Append([]string{
					cv.CategoryName,
					hv.TimeName,
					pctf(hv.UpProb),
					pctf(hv.DownProb),
					pctf(hv.EqualProb),
					fmt.Sprintf("%d", hv.Total),
				})
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}

func printPct(res models.PctProbability) error {
	if format == "json" {
		return printJSON(res)
	}
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Field", "Value"}))
	table.Append([]string{"Code", res.Code})
	table.Append([]string{"Pct change", fmt.Sprintf("%.2f", res.PctChg)})
	table.Append([]string{"Range", res.DisplayRange})
	table.Append([]string{"Up", pctf(res.UpProb)})
	table.Append([]string{"Down", pctf(res.DownProb)})
	table.Append([]string{"Equal", pctf(res.EqualProb)})
	table.Append([]string{"Avg samples", fmt.Sprintf("%.1f", res.AvgTotal)})
	table.Append([]string{"Avg max", pctf(res.MaxPct)})
	table.Append([]string{"Avg min", pctf(res.MinPct)})
	table.Append([]string{"Avg close", pctf(res.ClosePct)})
	table.Append([]string{"Rows", fmt.Sprintf("%d", res.Rows)})
	return table.Render()
}

// printAll shows the auction horizon per category, one row per stock.
func printAll(res map[string]models.StockProbabilities) error {
	if format == "json" {
		return printJSON(res)
	}
	codes := make([]string, 0, len(res))
	for code := range res {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Code", "Name", "Period", "Category", "Auction Up", "Auction Down", "Samples"}),
	)
	for _, code := range codes {
		sp := res[code]
		for _, spec := range models.Periods {
			pv, ok := sp.Data[spec.ID]
			if !ok {
				continue
			}
			for _, c := range viewCategories(pv) {
				hv, ok := pv.Categories[c].TimePeriods[models.HorizonAuction]
				if !ok {
					continue
				}
				table.Append([]string{
					code,
					sp.Name,
					pv.PeriodName,
					pv.Categories[c].CategoryName,
					pctf(hv.UpProb),
					pctf(hv.DownProb),
					fmt.Sprintf("%d", hv.Total),
				})
			}
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Printf("%d stocks analyzed\n", len(res))
	return nil
}
