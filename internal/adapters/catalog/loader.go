// Package catalog loads the fixed TLE catalog and serves it from memory.
package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/orbitwatch/internal/domain/orbit"
)

// LoadFile reads a catalog from path. Files ending in .json hold an array
// of CelesTrak-style objects; anything else is parsed as 2-line or 3-line
// element text. Entries without a catalog number or either element line
// are skipped.
func LoadFile(ctx context.Context, path string) ([]orbit.Record, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(ctx, f)
	}
	return DecodeText(ctx, f)
}

// DecodeJSON reads a JSON array of records.
func DecodeJSON(ctx context.Context, r io.Reader) ([]orbit.Record, error) {
	var raw []orbit.Record
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog json: %w", err)
	}
	out := make([]orbit.Record, 0, len(raw))
	for _, rec := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if valid(rec) {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

// DecodeText reads element sets in 2LE or 3LE layout. A name line, when
// present, precedes its pair and may carry the "0 " prefix.
func DecodeText(ctx context.Context, r io.Reader) ([]orbit.Record, error) {
	sc := bufio.NewScanner(r)
	var (
		out  []orbit.Record
		name string
		l1   string
	)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimRight(sc.Text(), " \r\t")
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, "1 "):
			l1 = line
		case strings.HasPrefix(line, "2 ") && l1 != "":
			id, err := orbit.CatalogNumber(l1)
			if err == nil {
				rec := orbit.Record{NoradID: id, Name: name, Line1: l1, Line2: line}
				if valid(rec) {
					out = append(out, rec)
				}
			}
			name, l1 = "", ""
		default:
			name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
			l1 = ""
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

func valid(rec orbit.Record) bool {
	return rec.NoradID > 0 && strings.TrimSpace(rec.Line1) != "" && strings.TrimSpace(rec.Line2) != ""
}
