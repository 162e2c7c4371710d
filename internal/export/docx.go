// Package export renders a stored answer into a downloadable .docx file.
package export

import (
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Render builds a document holding the question followed by the answer.
// Answers are markdown-formatted by the completion model; headings,
// emphasis, lists and code blocks are mapped onto docx paragraphs.
func Render(question, answer string) (*docx.Docx, error) {
	doc := docx.New().WithDefaultTheme()

	if question != "" {
		doc.AddParagraph().AddText(question).Size("32").Bold()
		doc.AddParagraph() // spacer
	}

	if err := renderMarkdown(doc, []byte(answer)); err != nil {
		return nil, fmt.Errorf("render answer: %w", err)
	}

	return doc, nil
}

func renderMarkdown(doc *docx.Docx, src []byte) error {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	for block := root.FirstChild(); block != nil; block = block.NextSibling() {
		renderBlock(doc, src, block, "")
	}

	return nil
}

var headingSizes = map[int]string{1: "36", 2: "32", 3: "28", 4: "26", 5: "24", 6: "24"}

func renderBlock(doc *docx.Docx, src []byte, n ast.Node, prefix string) {
	switch block := n.(type) {
	case *ast.Heading:
		p := doc.AddParagraph()
		size := headingSizes[block.Level]
		for _, run := range inlineRuns(src, block) {
			r := p.AddText(run.text).Bold().Size(size)
			if run.italic {
				r.Italic()
			}
		}

	case *ast.Paragraph, *ast.TextBlock:
		p := doc.AddParagraph()
		if prefix != "" {
			p.AddText(prefix)
		}
		addInlineRuns(p, src, n)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		for _, line := range codeLines(src, n) {
			doc.AddParagraph().AddText(line).Color("444444")
		}

	case *ast.List:
		i := 1
		for item := block.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "• "
			if block.IsOrdered() {
				marker = fmt.Sprintf("%d. ", i)
				i++
			}
			for child := item.FirstChild(); child != nil; child = child.NextSibling() {
				renderBlock(doc, src, child, marker)
				marker = "   " // continuation lines of the same item
			}
		}

	case *ast.Blockquote:
		for child := block.FirstChild(); child != nil; child = child.NextSibling() {
			renderBlock(doc, src, child, "> ")
		}

	case *ast.ThematicBreak:
		doc.AddParagraph().AddText("———")

	default:
		// unknown block: flatten to plain text
		p := doc.AddParagraph()
		addInlineRuns(p, src, n)
	}
}

type inlineRun struct {
	text   string
	bold   bool
	italic bool
	code   bool
}

func addInlineRuns(p *docx.Paragraph, src []byte, n ast.Node) {
	for _, run := range inlineRuns(src, n) {
		r := p.AddText(run.text)
		if run.bold {
			r.Bold()
		}
		if run.italic {
			r.Italic()
		}
		if run.code {
			r.Color("444444")
		}
	}
}

// inlineRuns flattens the inline tree under n into styled text runs.
func inlineRuns(src []byte, n ast.Node) []inlineRun {
	var runs []inlineRun
	collectRuns(src, n, inlineRun{}, &runs)
	return runs
}

func collectRuns(src []byte, n ast.Node, style inlineRun, out *[]inlineRun) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch node := child.(type) {
		case *ast.Text:
			s := style
			s.text = string(node.Segment.Value(src))
			if s.text != "" {
				*out = append(*out, s)
			}
			if node.SoftLineBreak() || node.HardLineBreak() {
				sp := style
				sp.text = " "
				*out = append(*out, sp)
			}

		case *ast.Emphasis:
			s := style
			if node.Level >= 2 {
				s.bold = true
			} else {
				s.italic = true
			}
			collectRuns(src, node, s, out)

		case *ast.CodeSpan:
			s := style
			s.code = true
			var b strings.Builder
			for seg := node.FirstChild(); seg != nil; seg = seg.NextSibling() {
				if t, ok := seg.(*ast.Text); ok {
					b.Write(t.Segment.Value(src))
				}
			}
			s.text = b.String()
			if s.text != "" {
				*out = append(*out, s)
			}

		case *ast.Link:
			collectRuns(src, node, style, out)
			s := style
			s.text = " (" + string(node.Destination) + ")"
			*out = append(*out, s)

		case *ast.AutoLink:
			s := style
			s.text = string(node.URL(src))
			*out = append(*out, s)

		default:
			collectRuns(src, child, style, out)
		}
	}
}

func codeLines(src []byte, n ast.Node) []string {
	lines := n.Lines()

	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, strings.TrimRight(string(seg.Value(src)), "\n"))
	}

	return out
}
