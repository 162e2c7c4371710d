// Package gateway talks to the external generative-AI completion endpoint.
package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/learnhub/chathub/internal/domain/conversation"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrUpstream covers every gateway failure: transport, timeout, or an
// answerless response. Callers must not persist anything when they see it.
var ErrUpstream = errors.New("completion upstream failed")

// Attachment is the raw uploaded payload forwarded to the model.
type Attachment struct {
	Data []byte
	MIME string
	Kind string // conversation.KindImage or conversation.KindPDF
	Name string
}

type Request struct {
	Question   string
	Attachment *Attachment
}

// Completer turns a question (and optional attachment) into an answer.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient is a Completer backed by an OpenAI-compatible endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIClient(baseURL, model string, timeout time.Duration) *OpenAIClient {
	opts := []option.RequestOption{}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client := openai.NewClient(opts...)

	return &OpenAIClient{client: &client, model: model, timeout: timeout}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(cctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(buildParts(req)),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no content choices returned", ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}

func buildParts(req Request) []openai.ChatCompletionContentPartUnionParam {
	question := req.Question
	if question == "" && req.Attachment != nil {
		// attachment-only submission: ask for a description
		question = "Describe this document."
		if req.Attachment.Kind == conversation.KindImage {
			question = "Describe this image."
		}
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(question),
	}

	if a := req.Attachment; a != nil {
		dataURL := fmt.Sprintf("data:%s;base64,%s", a.MIME, base64.StdEncoding.EncodeToString(a.Data))

		switch a.Kind {
		case conversation.KindPDF:
			parts = append(parts, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileData: openai.String(dataURL),
				Filename: openai.String(a.Name),
			}))
		default:
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}))
		}
	}

	return parts
}
