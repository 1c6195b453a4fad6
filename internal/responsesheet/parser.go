package responsesheet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scorecheck/backend/internal/metrics"
)

// Parser turns raw response-sheet input into a Sheet. Input is either a URL,
// HTML markup or pre-extracted plain text.
type Parser struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func New(fetcher Fetcher) *Parser {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(DefaultFetchTimeout, DefaultFetchMaxBytes)
	}
	return &Parser{fetcher: fetcher, logger: slog.Default()}
}

// WithLogger returns a copy of p that logs through l.
func (p *Parser) WithLogger(l *slog.Logger) *Parser {
	cp := *p
	cp.logger = l
	return &cp
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// IsHTML reports whether content should take the HTML path.
func IsHTML(content string) bool {
	return strings.Contains(content, "<body") || strings.Contains(content, "<table")
}

func (p *Parser) Parse(ctx context.Context, input string) (*Sheet, error) {
	content := strings.TrimSpace(input)
	if isURL(content) {
		body, err := p.fetcher.Fetch(ctx, content)
		if err != nil {
			metrics.ResponseSheetParses.WithLabelValues("url", "fetch_error").Inc()
			return nil, err
		}
		content = body
	}
	return p.ParseContent(content)
}

// ParseContent parses already-retrieved content.
func (p *Parser) ParseContent(content string) (*Sheet, error) {
	path := "text"
	parse := parseText
	if IsHTML(content) {
		path = "html"
		parse = parseHTML
	}

	sheet, unresolved, err := parse(content)
	if err != nil {
		metrics.ResponseSheetParses.WithLabelValues(path, "malformed").Inc()
		return nil, err
	}
	metrics.ResponseSheetParses.WithLabelValues(path, "ok").Inc()

	if len(unresolved) > 0 {
		p.logger.Warn("chosen option recorded as option number",
			"application_no", sheet.ApplicationNo,
			"questions", len(unresolved))
	}
	if sheet.Skipped > 0 {
		metrics.SkippedQuestions.Add(float64(sheet.Skipped))
		p.logger.Warn("question markers without a question id skipped",
			"application_no", sheet.ApplicationNo,
			"skipped", sheet.Skipped,
			"questions", len(sheet.Responses))
	}
	if sheet.Attribution == AttributionPositional {
		metrics.PositionalAttribution.Inc()
		p.logger.Warn("subjects attributed by positional redistribution",
			"application_no", sheet.ApplicationNo,
			"sections", len(sheet.Sections),
			"questions", len(sheet.Responses))
	}
	p.logger.Debug("response sheet parsed",
		"path", path,
		"questions", len(sheet.Responses),
		"attribution", sheet.Attribution)
	return sheet, nil
}

// ParseContent parses content with a default parser.
func ParseContent(content string) (*Sheet, error) {
	return New(nil).ParseContent(content)
}

func missingFields(fields []string) error {
	return fmt.Errorf("%w - missing required student information: %s", ErrMalformed, strings.Join(fields, ", "))
}
