package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/domain/conversation"
	"github.com/learnhub/chathub/internal/domain/user"
	"github.com/learnhub/chathub/internal/store/mongo"
)

type AdminUserStore interface {
	UserStore
	List(ctx context.Context) ([]user.User, error)
	Count(ctx context.Context) (int64, error)
	SetActive(ctx context.Context, email string, active bool) error
}

type AdminConversationStore interface {
	All(ctx context.Context) ([]conversation.Conversation, error)
	Summarize(ctx context.Context, totalUsers int64) (conversation.Summary, error)
}

type AdminHandler struct {
	users         AdminUserStore
	conversations AdminConversationStore
	profile       *AuthHandler
}

// NewAdminHandler wires the admin surface. The profile handler is shared
// so admin profile edits go through the same update path as self-service.
func NewAdminHandler(users AdminUserStore, conversations AdminConversationStore, profile *AuthHandler) *AdminHandler {
	return &AdminHandler{
		users:         users,
		conversations: conversations,
		profile:       profile,
	}
}

// ListUsersWithChats returns every account together with the subjects it
// owns, joined in memory by owner email.
func (h *AdminHandler) ListUsersWithChats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	conversations, err := h.conversations.All(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list chats")
		return
	}

	bySubjectOwner := make(map[string][]conversation.Conversation, len(users))
	for _, conv := range conversations {
		bySubjectOwner[conv.OwnerEmail] = append(bySubjectOwner[conv.OwnerEmail], conv)
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		chats := bySubjectOwner[u.Email]
		if chats == nil {
			chats = []conversation.Conversation{}
		}
		out = append(out, gin.H{
			"user":  u.Summary(),
			"chats": chats,
		})
	}

	ctx.JSON(http.StatusOK, out)
}

type toggleStatusRequest struct {
	Email    string `json:"email" binding:"required,email"`
	IsActive *bool  `json:"isActive" binding:"required"`
}

// ToggleStatus enables or disables an account. A disabled account keeps
// its data but can no longer sign in.
func (h *AdminHandler) ToggleStatus(ctx *gin.Context) {
	var req toggleStatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.users.SetActive(cctx, req.Email, *req.IsActive); err != nil {
		if errors.Is(err, mongo.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not update user status")
		return
	}

	state := "disabled"
	if *req.IsActive {
		state = "enabled"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User " + req.Email + " has been " + state + ".",
	})
}

func (h *AdminHandler) GetUser(ctx *gin.Context) {
	email := ctx.Query("email")
	if email == "" {
		RespondBadRequest(ctx, "Missing email query parameter", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u.Summary())
}

// UpdateUser lets an admin edit any account through the shared profile
// update path.
func (h *AdminHandler) UpdateUser(ctx *gin.Context) {
	email := ctx.PostForm("email")
	if email == "" {
		RespondBadRequest(ctx, "Missing email field", nil)
		return
	}

	h.profile.applyProfileUpdate(ctx, email)
}

func (h *AdminHandler) Summary(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	totalUsers, err := h.users.Count(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not compute summary")
		return
	}

	summary, err := h.conversations.Summarize(cctx, totalUsers)
	if err != nil {
		RespondInternal(ctx, "Could not compute summary")
		return
	}

	ctx.JSON(http.StatusOK, summary)
}
