package tokens

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyFile is returned when a token file has no header row.
var ErrEmptyFile = errors.New("token file is empty")

// Group is an ordered token list tagged with its exchange type.
type Group struct {
	Name         string
	ExchangeType int
	Tokens       []string
}

// FileGroup binds a token file to an exchange type.
type FileGroup struct {
	Path         string
	ExchangeType int
}

// FileSource loads token groups from CSV files. Files are re-read on every
// Load so a fresh session picks up the latest batch output.
type FileSource struct {
	groups []FileGroup
}

// NewFileSource creates a FileSource. Groups are returned in the given order.
func NewFileSource(groups ...FileGroup) *FileSource {
	return &FileSource{groups: groups}
}

// Load reads every group. Files are read concurrently; the result keeps the
// configured group order.
func (s *FileSource) Load(ctx context.Context) ([]Group, error) {
	result := make([]Group, len(s.groups))

	g, ctx := errgroup.WithContext(ctx)
	for i, fg := range s.groups {
		i, fg := i, fg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tokens, err := ReadFile(fg.Path)
			if err != nil {
				return err
			}
			result[i] = Group{
				Name:         filepath.Base(fg.Path),
				ExchangeType: fg.ExchangeType,
				Tokens:       tokens,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReadFile returns the token column of a CSV file in file order.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	tokens, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tokens, nil
}

// Read returns the first column of every row after the header.
func Read(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // strike is blank for futures, rows may be ragged
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var tokens []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		token := strings.TrimSpace(record[0])
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}
