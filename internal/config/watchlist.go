package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadWatchlist reads symbols from a CSV file. It uses the "symbol" column
// when the header has one, otherwise the first column of every row.
// Symbols are de-duplicated in order. A missing file yields no symbols.
func LoadWatchlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		col     int
		symbols []string
		seen    = make(map[string]struct{})
		first   = true
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read watchlist: %w", err)
		}
		if first {
			first = false
			if i := symbolColumn(rec); i >= 0 {
				col = i
				continue
			}
		}
		if col >= len(rec) {
			continue
		}
		s := strings.TrimSpace(rec[col])
		if s == "" || strings.EqualFold(s, "symbol") {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}
	return symbols, nil
}

func symbolColumn(header []string) int {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "symbol" {
			return i
		}
	}
	return -1
}
