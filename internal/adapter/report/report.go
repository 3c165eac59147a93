// Package report renders user statistics into downloadable formats.
package report

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/eslsoft/quizstats/internal/adapter/mapping"
	"github.com/eslsoft/quizstats/internal/entity"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatGzip Format = "gzip"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "json":
		return FormatJSON, nil
	case "gz", "gzip", "json.gz":
		return FormatGzip, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Extension returns the conventional file suffix for the format.
func (f Format) Extension() string {
	switch f {
	case FormatGzip:
		return ".json.gz"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".json"
	}
}

// Export is the document written by the JSON encodings.
type Export struct {
	Stats  *mapping.RealUserStats `json:"stats"`
	Badges []mapping.Badge        `json:"badges"`
}

// Write encodes stats and badges to w in the given format.
func Write(w io.Writer, format Format, stats *entity.RealUserStats, badges []entity.Badge) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, stats, badges)
	case FormatGzip:
		zw := gzip.NewWriter(w)
		if err := writeJSON(zw, stats, badges); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	case FormatXLSX:
		return WriteWorkbook(w, stats, badges)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func writeJSON(w io.Writer, stats *entity.RealUserStats, badges []entity.Badge) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Export{Stats: mapping.ToRealUserStats(stats), Badges: mapping.ToBadges(badges)}); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
