package client

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/verte-zerg/flashvocab/internal/model"
)

var csvHeader = []string{"kanji", "meaning", "pronunciation", "sino_vietnamese", "example"}

func writeRowsCSV(w io.Writer, rows []model.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Headword, r.Meaning, r.Pronunciation, r.Reading, r.Example}); err != nil {
			return fmt.Errorf("failed to encode rows: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return nil
}
