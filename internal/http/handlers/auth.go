package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/chathub/internal/auth"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/domain/user"
	"github.com/learnhub/chathub/internal/http/middlewares"
	"github.com/learnhub/chathub/internal/security"
	"github.com/learnhub/chathub/internal/store/mongo"
)

type UserStore interface {
	Create(ctx context.Context, name, phone, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, email string, upd user.Update) (user.User, error)
}

type FileStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Delete(ref string) error
}

// Cleanup schedules best-effort deletion of a superseded upload. It must
// never fail the enclosing request.
type Cleanup func(ref string)

type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
}

type AuthHandler struct {
	users   UserStore
	jwt     TokenIssuer
	files   FileStore
	cleanup Cleanup
}

func NewAuthHandler(users UserStore, jwt TokenIssuer, files FileStore, cleanup Cleanup) *AuthHandler {
	if cleanup == nil {
		cleanup = func(string) {}
	}

	return &AuthHandler{
		users:   users,
		jwt:     jwt,
		files:   files,
		cleanup: cleanup,
	}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	_, err = h.users.Create(cctx, req.Name, req.Phone, req.Email, hash)

	if err != nil {
		if errors.Is(err, mongo.ErrDuplicateEmail) {
			RespondError(ctx, http.StatusConflict, "duplicate_identity", "Email is already registered.", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User was registered successfully.",
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for the lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not sign in")
		return
	}

	// the active check comes before the password check so a disabled
	// account is reported as disabled, not as a bad password
	if !foundUser.IsActive {
		RespondForbidden(ctx, "account_disabled", "This account has been disabled.")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid password.")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID.Hex(), foundUser.Email, foundUser.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        foundUser.Summary(),
	})
}

// UpdateSelf handles the multipart profile update. A user can only update
// the account their token was issued for.
func (h *AuthHandler) UpdateSelf(ctx *gin.Context) {
	tokenEmail, ok := middlewares.EmailFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	email := ctx.PostForm("email")
	if email == "" {
		RespondBadRequest(ctx, "Missing email field", nil)
		return
	}

	if email != tokenEmail {
		RespondForbidden(ctx, "forbidden", "You can only update your own profile.")
		return
	}

	h.applyProfileUpdate(ctx, email)
}

// applyProfileUpdate is shared between self-service and admin updates.
func (h *AuthHandler) applyProfileUpdate(ctx *gin.Context, email string) {
	upd := user.Update{}

	if name := ctx.PostForm("name"); name != "" {
		upd.Name = &name
	}
	if phone := ctx.PostForm("phone"); phone != "" {
		upd.Phone = &phone
	}
	if password := ctx.PostForm("password"); password != "" {
		hash, err := security.HashPassword(password)
		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}
		upd.PasswordHash = &hash
	}

	file, header, err := ctx.Request.FormFile("image")
	if err == nil {
		defer file.Close()

		ref, err := h.saveProfileImage(header, file)
		if err != nil {
			RespondInternal(ctx, "Could not store profile image")
			return
		}
		upd.ProfileImage = &ref
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	prev, err := h.users.Update(cctx, email, upd)
	if err != nil {
		if errors.Is(err, mongo.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not update user")
		return
	}

	// drop the replaced image unless it was the shared placeholder
	if upd.ProfileImage != nil && prev.ProfileImage != "" && prev.ProfileImage != user.DefaultProfileImage {
		h.cleanup(prev.ProfileImage)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully.",
	})
}

func (h *AuthHandler) saveProfileImage(header *multipart.FileHeader, file multipart.File) (string, error) {
	return h.files.Save(header.Filename, file)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"name":         u.Name,
		"phone":        u.Phone,
		"email":        u.Email,
		"profileImage": u.ProfileImage,
		"isAdmin":      u.Role == auth.RoleAdmin,
		"isActive":     u.IsActive,
	})
}
