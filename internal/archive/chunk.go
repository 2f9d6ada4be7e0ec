package archive

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/gaiaoffline/internal/catalog"
)

// DefaultSkipRows is the number of metadata lines preceding the header in
// archive chunks.
const DefaultSkipRows = 1000

// ChunkReader decodes one CSV chunk into typed sources. Only the requested
// columns that are present in the chunk header are decoded.
type ChunkReader struct {
	csv     *csv.Reader
	columns []string
	fields  []chunkField
}

type chunkField struct {
	index  int
	column *catalog.Column
}

// NewChunkReader skips skipRows leading lines of r, reads the header line
// and prepares to decode the columns of want found in it, in want order.
func NewChunkReader(r io.Reader, skipRows int, want []string) (*ChunkReader, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	for i := 0; i < skipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: chunk ended after %d of %d preamble lines", ErrInvalidChunk, i, skipRows)
			}
			return nil, err
		}
	}

	// The header fixes FieldsPerRecord, so short rows fail in Read.
	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing header line", ErrInvalidChunk)
		}
		return nil, fmt.Errorf("reading header: %w", wrapParseError(err))
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.TrimSpace(name)] = i
	}

	c := &ChunkReader{csv: cr}
	for _, name := range want {
		idx, ok := positions[name]
		if !ok {
			continue
		}
		col, ok := catalog.LookupColumn(name)
		if !ok || col.Output {
			return nil, fmt.Errorf("%w %q", catalog.ErrUnknownColumn, name)
		}
		c.columns = append(c.columns, name)
		c.fields = append(c.fields, chunkField{index: idx, column: col})
	}
	return c, nil
}

// Columns returns the decoded column names in order.
func (c *ChunkReader) Columns() []string {
	return c.columns
}

// Has reports whether the chunk provides the named column.
func (c *ChunkReader) Has(name string) bool {
	for _, col := range c.columns {
		if col == name {
			return true
		}
	}
	return false
}

// Next decodes the next row. It returns io.EOF after the last row.
func (c *ChunkReader) Next() (catalog.Source, error) {
	var src catalog.Source
	record, err := c.csv.Read()
	if err != nil {
		if err == io.EOF {
			return src, io.EOF
		}
		return src, wrapParseError(err)
	}

	for _, f := range c.fields {
		if err := f.column.Parse(&src, record[f.index]); err != nil {
			line, _ := c.csv.FieldPos(f.index)
			return src, fmt.Errorf("%w: line %d: %v", ErrInvalidChunk, line, err)
		}
	}
	return src, nil
}

// wrapParseError marks CSV syntax errors as invalid chunks and passes
// retrieval errors through.
func wrapParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: %v", ErrInvalidChunk, err)
	}
	return err
}
