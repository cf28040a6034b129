package opencover

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/ludo-technologies/covscan/domain"
)

// RecordHandler receives each extracted record. Returning an error stops the parse.
type RecordHandler func(record domain.ClassCoverageRecord) error

// Result summarises one parse
type Result struct {
	Records   int
	Malformed []*CoverageFormatError
}

// Parser streams a report through a fresh State per call
type Parser struct {
	logger *zap.SugaredLogger
}

// NewParser creates a parser. A nil logger disables logging.
func NewParser(logger *zap.SugaredLogger) *Parser {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Parser{logger: logger}
}

// ParseFile opens path and parses it
func (p *Parser) ParseFile(ctx context.Context, path string, handle RecordHandler) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	return p.Parse(ctx, f, handle)
}

// Parse decodes r token by token and calls handle for every class record.
//
// Records are delivered as soon as their FullName text is seen, so records
// handled before a well-formedness error stay handled. Malformed coverage
// values are collected in Result.Malformed and do not stop the parse.
func (p *Parser) Parse(ctx context.Context, r io.Reader, handle RecordHandler) (Result, error) {
	var result Result

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	state := NewState()
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := state.StartElement(t.Name.Local, t.Attr); err != nil {
				var formatErr *CoverageFormatError
				if !errors.As(err, &formatErr) {
					return result, err
				}
				formatErr.Line, _ = dec.InputPos()
				result.Malformed = append(result.Malformed, formatErr)
				p.logger.Warnw("skipping class with malformed coverage", "error", formatErr)
			}

		case xml.EndElement:
			state.EndElement(t.Name.Local)

		case xml.CharData:
			record, ok := state.Text(string(t))
			if !ok {
				continue
			}
			result.Records++
			p.logger.Debugw("class coverage", "class", record.ClassName, "coverage", record.CoveragePercent)
			if handle == nil {
				continue
			}
			if err := handle(record); err != nil {
				return result, err
			}
		}
	}
}

// charsetReader decodes reports declared in a non UTF-8 encoding
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported report encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported report encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
