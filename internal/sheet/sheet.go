// Package sheet turns vocabulary spreadsheets into flashcard rows.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/flashvocab/internal/model"
)

// Format is a supported spreadsheet file format.
type Format string

// Supported formats.
const (
	FormatXLSX Format = ".xlsx"
	FormatCSV  Format = ".csv"
)

const untitledSetName = "Untitled set"

type field int

const (
	fieldHeadword field = iota
	fieldMeaning
	fieldPronunciation
	fieldReading
	fieldExample
)

// Header aliases, matched after NFC normalization and case folding.
var headerAliases = map[field][]string{
	fieldHeadword:      {"kanji", "漢字", "headword", "word", "từ", "từ vựng"},
	fieldMeaning:       {"meaning", "nghĩa", "意味"},
	fieldPronunciation: {"pronunciation", "phiên âm", "hiragana", "ひらがな", "reading", "読み"},
	fieldReading:       {"sino_vietnamese", "sino-vietnamese", "hán việt"},
	fieldExample:       {"example", "ví dụ", "例文"},
}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]field {
	idx := map[string]field{}
	for f, aliases := range headerAliases {
		for _, alias := range aliases {
			idx[normalizeHeader(alias)] = f
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	h = norm.NFC.String(strings.TrimSpace(h))
	return cases.Fold().String(h)
}

// FormatFromName picks the format from a file name extension.
func FormatFromName(name string) (Format, error) {
	switch Format(strings.ToLower(filepath.Ext(name))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", model.Invalidf("only .xlsx and .csv files are allowed")
	}
}

// SetNameFromFile derives a default set name from a file path.
func SetNameFromFile(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." {
		return untitledSetName
	}
	return name
}

// ReadFile parses the spreadsheet at path.
func ReadFile(path string) ([]model.Row, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only spreadsheet.
			_ = cerr
		}
	}()
	return Read(file, format)
}

// Read parses the first worksheet of a spreadsheet. The first row is the header.
func Read(r io.Reader, format Format) ([]model.Row, error) {
	var records [][]string
	var err error
	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	case FormatCSV:
		records, err = readCSV(r)
	default:
		return nil, model.Invalidf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return mapRecords(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, model.Invalidf("failed to open workbook: %v", err)
	}
	defer func() {
		if cerr := book.Close(); cerr != nil {
			// Best-effort close of workbook temp files.
			_ = cerr
		}
	}()
	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, model.Invalidf("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, model.Invalidf("failed to parse csv: %v", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func mapRecords(records [][]string) ([]model.Row, error) {
	if len(records) < 2 {
		return nil, model.Invalidf("spreadsheet is empty")
	}
	columns := mapHeader(records[0])
	if len(columns) == 0 {
		return nil, model.Invalidf("no known column in header %q", strings.Join(records[0], ", "))
	}

	rows := make([]model.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		var row model.Row
		for col, f := range columns {
			if col >= len(record) {
				continue
			}
			setField(&row, f, strings.TrimSpace(record[col]))
		}
		if row.Blank() {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, model.Invalidf("spreadsheet is empty")
	}
	return rows, nil
}

// mapHeader returns column index to field. The first column wins for duplicated fields.
func mapHeader(header []string) map[int]field {
	columns := map[int]field{}
	taken := map[field]bool{}
	for i, h := range header {
		f, ok := aliasIndex[normalizeHeader(h)]
		if !ok || taken[f] {
			continue
		}
		columns[i] = f
		taken[f] = true
	}
	return columns
}

func setField(row *model.Row, f field, value string) {
	switch f {
	case fieldHeadword:
		row.Headword = value
	case fieldMeaning:
		row.Meaning = value
	case fieldPronunciation:
		row.Pronunciation = value
	case fieldReading:
		row.Reading = value
	case fieldExample:
		row.Example = value
	}
}
