package plotpage

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeChart struct {
	html string
	err  error
}

func (f fakeChart) Render(w io.Writer) error {
	if f.err != nil {
		return f.err
	}

	_, writeErr := w.Write([]byte(f.html))

	return writeErr
}

const echartsFullPage = `<!DOCTYPE html>
<html>
<head><style>.container {margin: 10px;}</style></head>
<body>
<div class="container">
<div class="item" id="chart1"></div>
<script type="text/javascript">"use strict";</script>
</div>
</body>
</html>`

func TestPageRender(t *testing.T) {
	t.Parallel()

	page := NewPage("Dependency Graph", "declared module edges")
	page.Add(Section{
		Title:    "Modules",
		Subtitle: "force layout",
		Chart:    fakeChart{html: `<div class="item" id="chart1"></div>`},
	})

	var buf bytes.Buffer

	if err := page.Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	html := buf.String()

	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Error("Expected a full HTML document")
	}

	if !strings.Contains(html, "echarts.min.js") {
		t.Error("Expected echarts assets to be included")
	}

	for _, want := range []string{"Dependency Graph", "declared module edges", "Modules", `id="chart1"`} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestPageRenderExtractsChartFragment(t *testing.T) {
	t.Parallel()

	page := NewPage("Graph", "")
	page.Add(Section{Title: "Chart", Chart: fakeChart{html: echartsFullPage}})

	var buf bytes.Buffer

	if err := page.Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	html := buf.String()

	if !strings.Contains(html, `class="echart-box"`) {
		t.Error("Expected the container to be renamed to echart-box")
	}

	if strings.Contains(html, ".container {margin: 10px;}") {
		t.Error("Expected the chart's style block to be stripped")
	}

	if !strings.Contains(html, `id="chart1"`) {
		t.Error("Expected the chart div to survive extraction")
	}
}

func TestPageRenderChartError(t *testing.T) {
	t.Parallel()

	page := NewPage("Graph", "")
	page.Add(Section{Title: "Broken", Chart: fakeChart{err: errors.New("boom")}})

	var buf bytes.Buffer

	err := page.Render(&buf)
	if err == nil {
		t.Fatal("Expected an error from a failing chart")
	}

	if !strings.Contains(err.Error(), "Broken") {
		t.Errorf("Expected the section name in the error, got %v", err)
	}
}

func TestExtractChartContent(t *testing.T) {
	t.Parallel()

	fragment := `<div class="item"></div>`
	if got := extractChartContent(fragment); got != fragment {
		t.Errorf("Fragments should pass through unchanged, got %q", got)
	}

	extracted := extractChartContent(echartsFullPage)

	if !strings.Contains(extracted, `class="echart-box"`) {
		t.Error("Expected container rename in extracted content")
	}

	if strings.Contains(extracted, "</body>") {
		t.Error("Extraction should stop before the body close")
	}
}

func TestRemoveStyleTags(t *testing.T) {
	t.Parallel()

	in := `a<style>x</style>b<style>y</style>c`
	if got := removeStyleTags(in); got != "abc" {
		t.Errorf("removeStyleTags returned %q", got)
	}
}
