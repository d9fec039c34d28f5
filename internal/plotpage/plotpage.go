// Package plotpage renders self-contained HTML pages around echarts
// charts.
package plotpage

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

// styleTagLen is len("</style>").
const styleTagLen = 8

// Renderable is the interface for chart components.
type Renderable interface {
	Render(w io.Writer) error
}

// Section is one chart block within a page.
type Section struct {
	Title    string
	Subtitle string
	Chart    Renderable
}

// Page is a complete visualization page.
type Page struct {
	Title    string
	Subtitle string
	sections []Section
}

// NewPage creates a page with the given heading.
func NewPage(title, subtitle string) *Page {
	return &Page{Title: title, Subtitle: subtitle}
}

// Add appends sections to the page.
func (p *Page) Add(sections ...Section) {
	p.sections = append(p.sections, sections...)
}

var (
	pageTemplate     *template.Template
	pageTemplateOnce sync.Once
	errPageTemplate  error
)

func getPageTemplate() (*template.Template, error) {
	pageTemplateOnce.Do(func() {
		pageTemplate, errPageTemplate = template.New("page").Parse(pageHTML)
		if errPageTemplate != nil {
			errPageTemplate = fmt.Errorf("parse page template: %w", errPageTemplate)
		}
	})

	return pageTemplate, errPageTemplate
}

type pageData struct {
	Title    string
	Subtitle string
	Sections []sectionData
}

type sectionData struct {
	Title    string
	Subtitle string
	Chart    template.HTML
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	tmpl, tmplErr := getPageTemplate()
	if tmplErr != nil {
		return tmplErr
	}

	data := pageData{Title: p.Title, Subtitle: p.Subtitle}

	for _, section := range p.sections {
		chartHTML, chartErr := renderChart(section.Chart)
		if chartErr != nil {
			return fmt.Errorf("render section %q: %w", section.Title, chartErr)
		}

		data.Sections = append(data.Sections, sectionData{
			Title:    section.Title,
			Subtitle: section.Subtitle,
			Chart:    template.HTML(chartHTML),
		})
	}

	if execErr := tmpl.Execute(w, data); execErr != nil {
		return fmt.Errorf("execute page template: %w", execErr)
	}

	return nil
}

// renderChart renders a chart and extracts the embeddable fragment.
func renderChart(chart Renderable) (string, error) {
	if chart == nil {
		return "", nil
	}

	var buf bytes.Buffer

	if err := chart.Render(&buf); err != nil {
		return "", err
	}

	return extractChartContent(buf.String()), nil
}

// extractChartContent pulls the chart div and script out of a full
// echarts HTML page. Fragments are passed through unchanged.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)

	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			break
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			break
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}

	return content
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>{{ .Title }}</title>
<script src="https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"></script>
<style>
body { margin: 0; background: #11151c; color: #d8dee9; font: 15px/1.5 system-ui, sans-serif; }
header { padding: 24px 32px 8px; }
header h1 { margin: 0 0 4px; font-size: 22px; }
header p { margin: 0; color: #8892a6; }
section.card { margin: 16px 32px; padding: 16px; background: #171c26; border-radius: 8px; }
section.card h2 { margin: 0 0 4px; font-size: 17px; }
section.card p.subtitle { margin: 0 0 12px; color: #8892a6; font-size: 13px; }
.echart-box .item { margin: 0 auto; }
footer { padding: 16px 32px; color: #5b657a; font-size: 12px; }
</style>
</head>
<body>
<header>
<h1>{{ .Title }}</h1>
<p>{{ .Subtitle }}</p>
</header>
{{ range .Sections }}
<section class="card">
<h2>{{ .Title }}</h2>
{{ if .Subtitle }}<p class="subtitle">{{ .Subtitle }}</p>{{ end }}
{{ .Chart }}
</section>
{{ end }}
<footer>depfence dependency report</footer>
</body>
</html>
`
