package convert

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxSheetNameLen = 31

// workbook is the in-memory model every spreadsheet passes through.
type workbook struct {
	Sheets []sheet
}

type sheet struct {
	Name string
	Rows [][]string
}

func (s *Service) convertSpreadsheet(ctx context.Context, src source, target string) ([]byte, error) {
	if target == src.Extension {
		return src.Data, nil
	}

	book, err := s.loadWorkbook(ctx, src)
	if err != nil {
		return nil, err
	}

	switch target {
	case "xlsx":
		return book.xlsx()
	case "csv":
		return book.csv()
	case "json":
		return book.json()
	case "html":
		return []byte(book.html(src.Title)), nil
	case "txt":
		return []byte(book.text()), nil
	}
	return nil, fmt.Errorf("no spreadsheet writer for %s", target)
}

// loadWorkbook reads csv and xlsx directly; xls and ods are first turned
// into xlsx by the office converter.
func (s *Service) loadWorkbook(ctx context.Context, src source) (*workbook, error) {
	switch src.Extension {
	case "csv":
		return readCSV(src.Text(), src.Title)
	case "xlsx":
		return readXLSX(src.Data)
	}
	xlsx, err := s.runExternal(ctx, s.office, src.Data, src.Extension, "xlsx")
	if err != nil {
		return nil, err
	}
	return readXLSX(xlsx)
}

func readCSV(text, title string) (*workbook, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return &workbook{Sheets: []sheet{{Name: sheetName(title, 0), Rows: rows}}}, nil
}

func readXLSX(data []byte) (*workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	book := &workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		book.Sheets = append(book.Sheets, sheet{Name: name, Rows: rows})
	}
	return book, nil
}

func (b *workbook) xlsx() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	used := make(map[string]bool)
	for i, sh := range b.Sheets {
		name := uniqueSheetName(sheetName(sh.Name, i), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("add sheet %q: %w", name, err)
		}
		for r, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// csv writes the first sheet only; CSV has no notion of sheets.
func (b *workbook) csv() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(b.Sheets) > 0 {
		if err := w.WriteAll(b.Sheets[0].Rows); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// json maps each sheet name to a list of records keyed by the header row.
func (b *workbook) json() ([]byte, error) {
	out := make(map[string][]map[string]string, len(b.Sheets))
	for _, sh := range b.Sheets {
		records := []map[string]string{}
		if len(sh.Rows) > 0 {
			header := headerNames(sh.Rows[0])
			for _, row := range sh.Rows[1:] {
				rec := make(map[string]string, len(header))
				for i, key := range header {
					if i < len(row) {
						rec[key] = row[i]
					} else {
						rec[key] = ""
					}
				}
				records = append(records, rec)
			}
		}
		out[sh.Name] = records
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}

func (b *workbook) html(title string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	sb.WriteString(html.EscapeString(title))
	sb.WriteString("</title>\n</head>\n<body>\n")
	for _, sh := range b.Sheets {
		sb.WriteString("<h2>" + html.EscapeString(sh.Name) + "</h2>\n<table>\n")
		for _, row := range sh.Rows {
			sb.WriteString("<tr>")
			for _, cell := range row {
				sb.WriteString("<td>" + html.EscapeString(cell) + "</td>")
			}
			sb.WriteString("</tr>\n")
		}
		sb.WriteString("</table>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// text writes tab separated rows; with several sheets each one is preceded
// by its name.
func (b *workbook) text() string {
	blocks := make([]string, 0, len(b.Sheets))
	for _, sh := range b.Sheets {
		lines := make([]string, 0, len(sh.Rows)+1)
		if len(b.Sheets) > 1 {
			lines = append(lines, sh.Name)
		}
		for _, row := range sh.Rows {
			lines = append(lines, strings.Join(row, "\t"))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func headerNames(row []string) []string {
	names := make([]string, len(row))
	used := make(map[string]bool, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// sheetName returns a name Excel accepts: no []:*?/\ characters, at most 31
// characters, never empty.
func sheetName(name string, index int) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetNameLen {
			base = base[:maxSheetNameLen-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
