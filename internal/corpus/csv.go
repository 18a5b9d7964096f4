package corpus

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// utf8BOM keeps Excel from mis-detecting the Korean names.
const utf8BOM = "\ufeff"

var csvHeader = []string{"corp_code", "corp_name", "corp_eng_name", "stock_code", "modify_date"}

// WriteCSV writes records as corp_codes.csv (UTF-8 with BOM).
func WriteCSV(w io.Writer, records []Record) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.CorpCode, r.CorpName, r.CorpEngName, r.StockCode, r.ModifyDate}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a corp_codes.csv produced by WriteCSV. Columns are matched by header name.
func ReadCSV(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{"corp_code", "corp_name"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		records = append(records, Record{
			CorpCode:    field(row, "corp_code"),
			CorpName:    field(row, "corp_name"),
			CorpEngName: field(row, "corp_eng_name"),
			StockCode:   field(row, "stock_code"),
			ModifyDate:  field(row, "modify_date"),
		})
	}
	return records, nil
}
