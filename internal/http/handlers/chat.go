package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/domain/conversation"
	"github.com/learnhub/chathub/internal/gateway"
	"github.com/learnhub/chathub/internal/http/middlewares"
	"github.com/learnhub/chathub/internal/store/mongo"
)

type ConversationStore interface {
	AppendEntry(ctx context.Context, ownerEmail, subject string, entry conversation.Entry) error
	GetBySubject(ctx context.Context, ownerEmail, subject string) (conversation.Conversation, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]conversation.Conversation, error)
	Delete(ctx context.Context, ownerEmail, subject string) error
}

// allowedMediaTypes is the attachment allow-list, keyed by sniffed media
// type. The value is the attachment kind stored on the entry.
var allowedMediaTypes = map[string]string{
	"image/png":       conversation.KindImage,
	"image/jpeg":      conversation.KindImage,
	"image/gif":       conversation.KindImage,
	"image/webp":      conversation.KindImage,
	"application/pdf": conversation.KindPDF,
}

type ChatHandler struct {
	conversations ConversationStore
	completer     gateway.Completer
	files         FileStore
	cleanup       Cleanup
}

func NewChatHandler(conversations ConversationStore, completer gateway.Completer, files FileStore, cleanup Cleanup) *ChatHandler {
	if cleanup == nil {
		cleanup = func(string) {}
	}

	return &ChatHandler{
		conversations: conversations,
		completer:     completer,
		files:         files,
		cleanup:       cleanup,
	}
}

type appendRequest struct {
	Subject  string `json:"subject" binding:"required"`
	Question string `json:"question"`
}

// Append handles POST /api/chat: answer the question via the completion
// gateway, then push the entry onto the (subject, owner) conversation in
// one upsert. Nothing is persisted when the gateway fails.
func (h *ChatHandler) Append(ctx *gin.Context) {
	ownerEmail, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	subject, question, attachment, ok := h.parseAppend(ctx)
	if !ok {
		return
	}

	if subject == "" {
		RespondBadRequest(ctx, "Missing subject", nil)
		return
	}
	if question == "" && attachment == nil {
		RespondBadRequest(ctx, "Provide a question or an attachment", nil)
		return
	}

	var gatewayAttachment *gateway.Attachment
	if attachment != nil {
		gatewayAttachment = &gateway.Attachment{
			Data: attachment.data,
			MIME: attachment.mime,
			Kind: attachment.kind,
			Name: attachment.name,
		}
	}

	answer, err := h.completer.Complete(ctx.Request.Context(), gateway.Request{
		Question:   question,
		Attachment: gatewayAttachment,
	})
	if err != nil {
		RespondUpstream(ctx, "The assistant could not answer. Please try again.")
		return
	}

	// store the attachment only after the gateway answered
	var ref *conversation.Attachment
	if attachment != nil {
		saved, err := h.files.Save(attachment.name, bytes.NewReader(attachment.data))
		if err != nil {
			RespondInternal(ctx, "Could not store attachment")
			return
		}
		ref = &conversation.Attachment{Ref: saved, Kind: attachment.kind}
	}

	var questionPtr *string
	if question != "" {
		questionPtr = &question
	}

	entry := mongo.NewEntry(questionPtr, answer, ref)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.conversations.AppendEntry(cctx, ownerEmail, subject, entry); err != nil {
		if ref != nil {
			h.cleanup(ref.Ref)
		}
		RespondInternal(ctx, "Could not save the conversation")
		return
	}

	resp := gin.H{"answer": answer, "entryId": entry.ID}
	if ref != nil {
		resp["attachmentRef"] = ref.Ref
	}

	ctx.JSON(http.StatusOK, resp)
}

type uploadedAttachment struct {
	data []byte
	mime string
	kind string
	name string
}

// parseAppend accepts either a JSON body or a multipart form with an
// optional "image" file field (images and PDFs both arrive through it).
func (h *ChatHandler) parseAppend(ctx *gin.Context) (subject, question string, attachment *uploadedAttachment, ok bool) {
	contentType := ctx.GetHeader("Content-Type")

	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req appendRequest
		if !BindJSON(ctx, &req) {
			return "", "", nil, false
		}
		return req.Subject, req.Question, nil, true
	}

	subject = ctx.PostForm("subject")
	question = ctx.PostForm("question")

	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		// no file part; fine as long as a question was sent
		return subject, question, nil, true
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		RespondBadRequest(ctx, "Could not read attachment", nil)
		return "", "", nil, false
	}

	// sniff the real media type rather than trusting the client header
	mime := http.DetectContentType(data)
	mime, _, _ = strings.Cut(mime, ";")

	kind, allowed := allowedMediaTypes[mime]
	if !allowed {
		RespondUnsupportedMedia(ctx, "Only PNG, JPEG, GIF, WebP images and PDF files are supported.")
		return "", "", nil, false
	}

	return subject, question, &uploadedAttachment{
		data: data,
		mime: mime,
		kind: kind,
		name: header.Filename,
	}, true
}

func (h *ChatHandler) GetBySubject(ctx *gin.Context) {
	ownerEmail, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	subject := ctx.Param("subject")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	conv, err := h.conversations.GetBySubject(cctx, ownerEmail, subject)
	if err != nil {
		if errors.Is(err, mongo.ErrConversationNotFound) {
			RespondNotFound(ctx, "No chat found for this subject")
			return
		}
		RespondInternal(ctx, "Could not fetch chat")
		return
	}

	ctx.JSON(http.StatusOK, conv)
}

func (h *ChatHandler) List(ctx *gin.Context) {
	ownerEmail, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	conversations, err := h.conversations.ListByOwner(cctx, ownerEmail)
	if err != nil {
		RespondInternal(ctx, "Could not fetch chats")
		return
	}

	if conversations == nil {
		conversations = []conversation.Conversation{}
	}

	ctx.JSON(http.StatusOK, conversations)
}

type deleteRequest struct {
	Subject string `json:"subject" binding:"required"`
}

func (h *ChatHandler) Delete(ctx *gin.Context) {
	ownerEmail, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req deleteRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.conversations.Delete(cctx, ownerEmail, req.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrConversationNotFound) {
			RespondNotFound(ctx, "Chat not found or already deleted")
			return
		}
		RespondInternal(ctx, "Could not delete chat")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Chat '" + req.Subject + "' deleted successfully.",
	})
}
