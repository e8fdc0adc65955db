package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/phrazzld/spimex-api/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Markers of the bulletin layout.
const (
	metricTonSection = "Единица измерения: Метрическая тонна"
	totalRowMarker   = "Итого"
)

// Bulletin column headers, whitespace-normalized.
const (
	colProductID   = "Код Инструмента"
	colProductName = "Наименование Инструмента"
	colBasisName   = "Базис поставки"
	colVolume      = "Объем Договоров в единицах измерения"
	colTotal       = "Обьем Договоров, руб."
	colCount       = "Количество Договоров, шт."
)

var requiredColumns = []string{
	colProductID, colProductName, colBasisName, colVolume, colTotal, colCount,
}

// maxLeadingBlankRows is how many rows between the header and the first
// instrument may carry no product code (unit captions, column numbers).
const maxLeadingBlankRows = 3

// extractAll parses every downloaded bulletin, one batch per file, ordered
// by trading date.
func (s *Scraper) extractAll(ctx context.Context, dir string, links []Link) ([][]domain.TradingResult, error) {
	sorted := append([]Link(nil), links...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	batches := make([][]domain.TradingResult, len(sorted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, link := range sorted {
		i, link := i, link
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := s.extract(filepath.Join(dir, filepath.Base(link.FileName)))
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", link.FileName, err)
			}
			batches[i] = rows
			s.logger.Debug("extracted bulletin",
				slog.String("file", link.FileName),
				slog.Int("rows", len(rows)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// ExtractFile reads the first sheet of an .xls bulletin. The trading date
// is taken from the file name (DD.MM.YYYY.xls).
func ExtractFile(path string) ([]domain.TradingResult, error) {
	date, err := dateFromFileName(path)
	if err != nil {
		return nil, err
	}

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrSectionNotFound)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: first sheet unreadable", ErrSectionNotFound)
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		grid = append(grid, cells)
	}

	return ParseBulletin(grid, date)
}

func dateFromFileName(path string) (time.Time, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return domain.ParseBulletinDate(name)
}

// ParseBulletin turns the cell grid of a bulletin sheet into trading
// results. Only the metric ton section is read, and only instruments with
// at least one contract are kept.
func ParseBulletin(grid [][]string, date time.Time) ([]domain.TradingResult, error) {
	start := -1
	for i, row := range grid {
		if rowContains(row, metricTonSection) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, ErrSectionNotFound
	}

	headerIdx := -1
	var cols map[string]int
	for i := start; i < len(grid); i++ {
		if c, ok := mapColumns(grid[i]); ok {
			headerIdx, cols = i, c
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: header row not found", ErrSectionNotFound)
	}

	results := []domain.TradingResult{}
	leading := 0
	for i := headerIdx + 1; i < len(grid); i++ {
		row := grid[i]
		code := cell(row, cols[colProductID])

		if code == "" || strings.HasPrefix(code, totalRowMarker) || rowContains(row, totalRowMarker) {
			if len(results) == 0 && code == "" && leading < maxLeadingBlankRows {
				leading++
				continue
			}
			break
		}

		count, err := parseNumber(cell(row, cols[colCount]))
		if err != nil {
			return nil, fmt.Errorf("row %d: count: %w", i+1, err)
		}
		if count <= 0 {
			continue
		}

		volume, err := parseNumber(cell(row, cols[colVolume]))
		if err != nil {
			return nil, fmt.Errorf("row %d: volume: %w", i+1, err)
		}
		total, err := parseNumber(cell(row, cols[colTotal]))
		if err != nil {
			return nil, fmt.Errorf("row %d: total: %w", i+1, err)
		}

		r, err := domain.NewTradingResult(
			code,
			cell(row, cols[colProductName]),
			cell(row, cols[colBasisName]),
			volume, total, count,
			date,
		)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		results = append(results, *r)
	}

	return results, nil
}

// mapColumns locates the required headers in row.
func mapColumns(row []string) (map[string]int, bool) {
	cols := make(map[string]int, len(requiredColumns))
	for j, v := range row {
		norm := normalize(v)
		for _, name := range requiredColumns {
			if norm == name {
				cols[name] = j
			}
		}
	}
	return cols, len(cols) == len(requiredColumns)
}

func rowContains(row []string, s string) bool {
	for _, v := range row {
		if strings.Contains(normalize(v), s) {
			return true
		}
	}
	return false
}

func cell(row []string, j int) string {
	if j < 0 || j >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[j])
}

// normalize collapses runs of whitespace, including line breaks inside
// header cells, into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseNumber reads an integer amount. "-" and empty cells are zero;
// fractional values are rounded.
func parseNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, nil
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidFormat, s)
	}
	return int64(math.Round(f)), nil
}
