package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// sessionRows converts ListSessions entries into table rows.
func sessionRows(sessions []any, now time.Time) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, item := range sessions {
		s, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			str(s["name"]),
			fmt.Sprintf("%d", num(s["chapter"])),
			fmt.Sprintf("%d-%d", num(s["start_verse"]), num(s["end_verse"])),
			formatRepeat(num(s["repeat"])),
			str(s["reciter"]),
			relativeTime(str(s["updated_at"]), now),
		})
	}
	return rows
}

// chapterRows converts ListChapters entries into table rows.
func chapterRows(chapters []any) [][]string {
	rows := make([][]string, 0, len(chapters))
	for _, item := range chapters {
		c, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", num(c["id"])),
			str(c["name"]),
			str(c["transliteration"]),
			str(c["translation"]),
			str(c["type"]),
			fmt.Sprintf("%d", num(c["total_verses"])),
		})
	}
	return rows
}

// markRows converts ListMarks output into sorted table rows.
func markRows(marks map[string]any) [][]string {
	type entry struct {
		chapter, verse int
		comment        string
	}
	var entries []entry
	for ch, verses := range marks {
		vm, ok := verses.(map[string]any)
		if !ok {
			continue
		}
		for v, comment := range vm {
			var e entry
			if _, err := fmt.Sscanf(ch, "%d", &e.chapter); err != nil {
				continue
			}
			if _, err := fmt.Sscanf(v, "%d", &e.verse); err != nil {
				continue
			}
			e.comment = str(comment)
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].chapter != entries[j].chapter {
			return entries[i].chapter < entries[j].chapter
		}
		return entries[i].verse < entries[j].verse
	})

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{fmt.Sprintf("%d:%d", e.chapter, e.verse), e.comment})
	}
	return rows
}

func relativeTime(value string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatRepeat(n int) string {
	if n == 0 {
		return "∞"
	}
	return fmt.Sprintf("%dx", n)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int {
	f, _ := v.(float64)
	return int(f)
}
