package importer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// columns is the number of cells a vocabulary row must have.
const columns = 6

// Row is one parsed vocabulary line with every cell trimmed.
type Row struct {
	Line               int
	GermanWord         string
	EnglishTranslation string
	FullSentence       string
	BlankSentence      string
	EnglishSentence    string
	LevelID            string
}

// ParseResult holds the rows of a source file and how many lines were dropped.
type ParseResult struct {
	Rows []Row
	// Skipped counts non-blank lines with fewer than six cells.
	Skipped int
}

// ParseFile reads a .tsv/.txt or .xlsx file, chosen by extension.
func ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(f)
	default:
		return ParseTSV(f)
	}
}

// ParseTSV reads tab-separated lines of (germanWord, englishTranslation,
// fullSentence, blankSentence, englishSentence, levelId). Blank lines are
// ignored and lines with fewer than six cells are skipped. Extra cells are
// ignored.
func ParseTSV(r io.Reader) (*ParseResult, error) {
	res := &ParseResult{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		res.add(line, strings.Split(text, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	return res, nil
}

// ParseXLSX reads the first sheet of a workbook with the same column layout
// and rules as ParseTSV.
func ParseXLSX(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	res := &ParseResult{}
	for i, cells := range rows {
		if blank(cells) {
			continue
		}
		res.add(i+1, cells)
	}
	return res, nil
}

func (res *ParseResult) add(line int, cells []string) {
	if len(cells) < columns {
		res.Skipped++
		return
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	res.Rows = append(res.Rows, Row{
		Line:               line,
		GermanWord:         cells[0],
		EnglishTranslation: cells[1],
		FullSentence:       cells[2],
		BlankSentence:      cells[3],
		EnglishSentence:    cells[4],
		LevelID:            cells[5],
	})
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
