package gateway

import (
	"strings"
	"testing"

	"github.com/learnhub/chathub/internal/domain/conversation"
)

func TestBuildPartsQuestionOnly(t *testing.T) {
	parts := buildParts(Request{Question: "What is mitosis?"})

	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	if parts[0].OfText == nil || parts[0].OfText.Text != "What is mitosis?" {
		t.Fatalf("question not carried into text part: %+v", parts[0])
	}
}

func TestBuildPartsDefaultQuestions(t *testing.T) {
	tests := []struct {
		name string
		kind string
		want string
	}{
		{"image", conversation.KindImage, "Describe this image."},
		{"pdf", conversation.KindPDF, "Describe this document."},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			parts := buildParts(Request{
				Attachment: &Attachment{Data: []byte("x"), MIME: "application/octet-stream", Kind: tt.kind},
			})

			if len(parts) != 2 {
				t.Fatalf("got %d parts, want 2", len(parts))
			}
			if parts[0].OfText == nil || parts[0].OfText.Text != tt.want {
				t.Fatalf("got default question %+v, want %q", parts[0], tt.want)
			}
		})
	}
}

func TestBuildPartsEncodesAttachment(t *testing.T) {
	parts := buildParts(Request{
		Question: "what is this?",
		Attachment: &Attachment{
			Data: []byte{0x89, 'P', 'N', 'G'},
			MIME: "image/png",
			Kind: conversation.KindImage,
		},
	})

	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	img := parts[1].OfImageURL
	if img == nil {
		t.Fatalf("second part is not an image: %+v", parts[1])
	}
	if !strings.HasPrefix(img.ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("unexpected data url %q", img.ImageURL.URL)
	}
}
