// Package report writes per-run artifacts: captured page source, a markdown
// rendering of each page, screenshots, and a run summary in markdown, HTML
// and JSON.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const (
	PageHTMLFile    = "page.html"
	PageMarkdown    = "page.md"
	ScreenshotFile  = "screenshot.png"
	SummaryMarkdown = "summary.md"
	SummaryHTML     = "summary.html"
	ResultJSON      = "result.json"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Service implements interfaces.ReportWriter on the local filesystem
type Service struct {
	baseDir string
	logger  arbor.ILogger
	md      goldmark.Markdown
}

var _ interfaces.ReportWriter = (*Service)(nil)

// NewService creates a report writer rooted at baseDir (e.g. ./results)
func NewService(baseDir string, logger arbor.ILogger) *Service {
	return &Service{
		baseDir: baseDir,
		logger:  logger,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// StartRun creates results/run-<timestamp>. A second run starting in the
// same second gets the run ID appended.
func (s *Service) StartRun(run *models.RunRecord) (string, error) {
	if run == nil {
		return "", errors.New("run is nil")
	}

	dir := filepath.Join(s.baseDir, "run-"+run.StartedAt.UTC().Format("20060102-150405"))
	if _, err := os.Stat(dir); err == nil {
		dir = dir + "-" + SafeName(run.ID)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory %s: %w", dir, err)
	}

	s.logger.Debug().Str("run_id", run.ID).Str("dir", dir).Msg("Run directory created")
	return dir, nil
}

// WriteScenario stores page.html, page.md and screenshot.png (when
// provided) under runDir/<scenario>.
func (s *Service) WriteScenario(runDir string, scenario string, state models.PageState, screenshot []byte) (string, error) {
	dir := filepath.Join(runDir, SafeName(scenario))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scenario directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filepath.Join(dir, PageHTMLFile), []byte(state.HTML), 0o644); err != nil {
		return "", fmt.Errorf("failed to write page source: %w", err)
	}

	markdown := s.pageMarkdown(state)
	if err := os.WriteFile(filepath.Join(dir, PageMarkdown), []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("failed to write page markdown: %w", err)
	}

	if len(screenshot) > 0 {
		if err := os.WriteFile(filepath.Join(dir, ScreenshotFile), screenshot, 0o644); err != nil {
			return "", fmt.Errorf("failed to write screenshot: %w", err)
		}
	}

	s.logger.Debug().
		Str("scenario", scenario).
		Str("dir", dir).
		Int("html_length", len(state.HTML)).
		Int("screenshot_bytes", len(screenshot)).
		Msg("Scenario artifacts written")

	return dir, nil
}

// WriteSummary writes summary.md, summary.html and result.json into runDir
func (s *Service) WriteSummary(runDir string, run *models.RunRecord) error {
	if run == nil {
		return errors.New("run is nil")
	}

	summary := Summary(run)
	if err := os.WriteFile(filepath.Join(runDir, SummaryMarkdown), []byte(summary), 0o644); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}

	page, err := s.RenderHTML(summary, "WebProbe "+run.ID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, SummaryHTML), page, 0o644); err != nil {
		return fmt.Errorf("failed to write summary html: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, ResultJSON), data, 0o644); err != nil {
		return fmt.Errorf("failed to write result json: %w", err)
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Str("dir", runDir).
		Int("passed", run.Passed).
		Int("partial", run.Partial).
		Int("failed", run.Failed).
		Msg("Run summary written")
	return nil
}

// RenderHTML converts markdown into a standalone HTML page
func (s *Service) RenderHTML(markdown string, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to render summary html: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	page.WriteString(html.EscapeString(title))
	page.WriteString("</title>\n<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// pageMarkdown converts captured page source, falling back to the plain
// body text when conversion fails or yields nothing.
func (s *Service) pageMarkdown(state models.PageState) string {
	if state.HTML == "" {
		return ""
	}

	converter := md.NewConverter(state.URL, true, nil)
	converted, err := converter.ConvertString(state.HTML)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", state.URL).Msg("HTML to markdown conversion failed, using body text")
		return fallbackText(state.HTML)
	}
	if strings.TrimSpace(converted) == "" {
		return fallbackText(state.HTML)
	}
	return converted
}

// SafeName maps a scenario name onto a directory name
func SafeName(name string) string {
	safe := strings.Trim(unsafeName.ReplaceAllString(name, "_"), "_")
	if safe == "" {
		return "scenario"
	}
	return safe
}
