package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/couchcryptid/species-trend-etl/internal/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(title string, headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderReport lists one line per job with its match breakdown.
func renderReport(r pipeline.Report) string {
	headers := []string{"Job", "Species key", "Read", "Records", "Seasonal", "Year-round", "Unmatched", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(r.Jobs))
	for _, j := range r.Jobs {
		status := "ok"
		if j.Err != nil {
			status = "failed: " + j.Err.Error()
		}
		key := string(j.SpeciesKey)
		if key == "" {
			key = "-"
		}
		byKind := j.Summary.ByMatchKind
		rows = append(rows, []string{
			j.Job,
			key,
			strconv.Itoa(j.Sightings),
			strconv.Itoa(j.Summary.Total),
			strconv.Itoa(byKind[domain.SeasonalMatch]),
			strconv.Itoa(byKind[domain.YearRoundBySpecies] + byKind[domain.YearRoundGlobal]),
			strconv.Itoa(byKind[domain.Unmatched]),
			status,
		})
	}
	return renderTable("Run "+r.RunID, headers, rows, aligns)
}

// renderSummary prints count tables and the abundance_mean description.
func renderSummary(s domain.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total records: %d\n", s.Total)

	countTable := func(title, label string, counts map[string]int) {
		if len(counts) == 0 {
			return
		}
		rows := make([][]string, 0, len(counts))
		for _, k := range domain.SortedKeys(counts) {
			rows = append(rows, []string{k, strconv.Itoa(counts[k])})
		}
		b.WriteString(renderTable(title, []string{label, "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
		b.WriteString("\n")
	}
	countTable("Sightings by species", "Common name", s.BySpecies)
	countTable("Sightings by season", "Season", s.BySeason)
	countTable("Abundance class", "Class", s.ByClass)

	st := s.Abundance
	rows := [][]string{
		{"count", strconv.Itoa(st.Count)},
		{"mean", formatStat(st.Mean)},
		{"std", formatStat(st.Std)},
		{"min", formatStat(st.Min)},
		{"25%", formatStat(st.Q1)},
		{"50%", formatStat(st.Median)},
		{"75%", formatStat(st.Q3)},
		{"max", formatStat(st.Max)},
	}
	b.WriteString(renderTable("abundance_mean", []string{"Statistic", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	return b.String()
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
