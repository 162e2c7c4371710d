package export

import (
	"bytes"
	"testing"
)

const sampleAnswer = `# Photosynthesis

Plants convert **light** into *chemical* energy.

- chlorophyll
- sunlight
- water

1. absorb
2. convert

` + "```\n6CO2 + 6H2O -> C6H12O6 + 6O2\n```" + `

Use ` + "`RuBisCO`" + ` as the catalyst name.
`

func TestRenderProducesDocx(t *testing.T) {
	doc, err := Render("How does photosynthesis work?", sampleAnswer)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	// docx files are zip archives
	if buf.Len() == 0 || !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Fatalf("output does not look like a docx archive (%d bytes)", buf.Len())
	}
}

func TestRenderPlainText(t *testing.T) {
	doc, err := Render("q", "just a plain sentence with no markdown")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty document for plain text answer")
	}
}

func TestRenderEmptyQuestion(t *testing.T) {
	if _, err := Render("", "attachment-only entries have no question"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
}
