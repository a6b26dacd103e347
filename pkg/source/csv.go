package source

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/tabflow/tabflow/pkg/tferrors"
)

// CSVConfig configures a CSV row source.
type CSVConfig struct {
	// Path to the CSV file
	Path string
	// HasHeader indicates whether the first row names the columns
	HasHeader bool
	// BufferSize sets the record channel buffer
	BufferSize int
	// RawFields lists columns exempt from type sniffing: their cells stay
	// verbatim strings (empty cells are still missing). Identifier columns
	// use this so downstream output reproduces the source text exactly.
	RawFields []string
}

// CSVSource reads records from a CSV file with type sniffing: cells that
// parse as numbers become float64, empty cells become nil, everything else
// stays a string.
type CSVSource struct {
	cfg      CSVConfig
	file     *os.File
	reader   *csv.Reader
	fields   []string
	raw      map[string]bool
	peeked   []Record
	streamed bool
}

// NewCSVSource opens the file and reads the header row (or synthesizes
// column_N names when there is none).
func NewCSVSource(cfg CSVConfig) (*CSVSource, error) {
	file, err := os.Open(cfg.Path)
	if err != nil {
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to open CSV file").
			WithDetail("path", cfg.Path)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	raw := make(map[string]bool, len(cfg.RawFields))
	for _, name := range cfg.RawFields {
		raw[name] = true
	}

	s := &CSVSource{cfg: cfg, file: file, reader: reader, raw: raw}

	if cfg.HasHeader {
		header, err := reader.Read()
		if err != nil {
			_ = file.Close()
			if errors.Is(err, io.EOF) {
				return nil, tferrors.New(tferrors.ErrorTypeSchema, "CSV file is empty").
					WithDetail("path", cfg.Path)
			}
			return nil, tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to read CSV header").
				WithDetail("path", cfg.Path)
		}
		s.fields = header
	}

	return s, nil
}

// CSVFactory returns a Factory that opens a fresh CSVSource per pass.
func CSVFactory(cfg CSVConfig) Factory {
	return func() (RowSource, error) {
		return NewCSVSource(cfg)
	}
}

// Fields returns the field names in column order
func (s *CSVSource) Fields() []string {
	return s.fields
}

// Peek returns up to n records from the head of the file. Peeked records are
// buffered and replayed at the head of a subsequent Stream.
func (s *CSVSource) Peek(ctx context.Context, n int) ([]Record, error) {
	if s.streamed {
		return nil, tferrors.New(tferrors.ErrorTypeInternal, "cannot peek after streaming started")
	}

	for len(s.peeked) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to read CSV row").
				WithDetail("path", s.cfg.Path)
		}
		s.peeked = append(s.peeked, s.toRecord(row))
	}

	if len(s.peeked) < n {
		return s.peeked, nil
	}
	return s.peeked[:n], nil
}

// Stream returns the full record stream. The stream replays peeked records
// first, then continues reading the file. I/O errors are sent on the Errors
// channel and terminate the stream.
func (s *CSVSource) Stream(ctx context.Context) (*RowStream, error) {
	if s.streamed {
		return nil, tferrors.New(tferrors.ErrorTypeInternal, "source already streamed; open a new source")
	}
	s.streamed = true

	bufSize := s.cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 1024
	}
	recordChan := make(chan Record, bufSize)
	errorChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errorChan)

		for _, rec := range s.peeked {
			select {
			case recordChan <- rec:
			case <-ctx.Done():
				return
			}
		}
		s.peeked = nil

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			row, err := s.reader.Read()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errorChan <- tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to read CSV row").
						WithDetail("path", s.cfg.Path)
				}
				return
			}

			select {
			case recordChan <- s.toRecord(row):
			case <-ctx.Done():
				return
			}
		}
	}()

	return &RowStream{Records: recordChan, Errors: errorChan}, nil
}

// Close closes the underlying file
func (s *CSVSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// toRecord maps one CSV row to a Record using the header for field names.
// Rows shorter than the header leave trailing fields missing; without a
// header columns are named column_N.
func (s *CSVSource) toRecord(row []string) Record {
	if s.fields == nil {
		names := make([]string, len(row))
		for i := range row {
			names[i] = "column_" + strconv.Itoa(i)
		}
		s.fields = names
	}

	rec := make(Record, len(s.fields))
	for i, name := range s.fields {
		if i >= len(row) {
			rec[name] = nil
			continue
		}
		if s.raw[name] {
			if row[i] == "" {
				rec[name] = nil
			} else {
				rec[name] = row[i]
			}
			continue
		}
		rec[name] = sniff(row[i])
	}
	return rec
}

// sniff converts a raw CSV cell to its runtime type: empty cells are
// missing, numeric-looking cells become float64, everything else stays a
// string.
func sniff(cell string) interface{} {
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
