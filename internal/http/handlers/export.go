package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/chathub/internal/auth"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/domain/conversation"
	"github.com/learnhub/chathub/internal/export"
	"github.com/learnhub/chathub/internal/http/middlewares"
	"github.com/learnhub/chathub/internal/store/mongo"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type EntryFinder interface {
	FindEntry(ctx context.Context, entryID string) (conversation.Conversation, conversation.Entry, error)
	IncrementDownloadCount(ctx context.Context, entryID string) error
}

type ExportHandler struct {
	entries EntryFinder
}

func NewExportHandler(entries EntryFinder) *ExportHandler {
	return &ExportHandler{entries: entries}
}

// Download renders a stored PDF-analysis entry as a .docx file. Only the
// conversation owner or an admin can download it.
func (h *ExportHandler) Download(ctx *gin.Context) {
	email, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}
	role, _ := middlewares.RoleFromContext(ctx)

	entryID := ctx.Param("entryId")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	conv, entry, err := h.entries.FindEntry(cctx, entryID)
	if err != nil {
		if errors.Is(err, mongo.ErrEntryNotFound) {
			RespondNotFound(ctx, "Entry not found.")
			return
		}
		RespondInternal(ctx, "Could not load entry")
		return
	}

	if conv.OwnerEmail != email && role != auth.RoleAdmin {
		// hide other users' entries entirely
		RespondNotFound(ctx, "Entry not found.")
		return
	}

	if entry.Attachment == nil || entry.Attachment.Kind != conversation.KindPDF {
		RespondBadRequest(ctx, "Only PDF analysis entries can be exported.", nil)
		return
	}

	question := ""
	if entry.Question != nil {
		question = *entry.Question
	}

	doc, err := export.Render(question, entry.Answer)
	if err != nil {
		RespondInternal(ctx, "Could not render document")
		return
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		RespondInternal(ctx, "Could not render document")
		return
	}

	// counting is best effort; the download proceeds either way
	if err := h.entries.IncrementDownloadCount(cctx, entryID); err != nil {
		slog.Default().WarnContext(cctx, "export.count_failed",
			"request_id", requestIDFrom(ctx),
			"entry_id", entryID,
			"error", err,
		)
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "analysis-"+entryID+".docx"))
	ctx.Data(http.StatusOK, docxContentType, buf.Bytes())
}
