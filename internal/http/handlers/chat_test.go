package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/learnhub/chathub/internal/auth"
	"github.com/learnhub/chathub/internal/domain/conversation"
	"github.com/learnhub/chathub/internal/gateway"
	"github.com/learnhub/chathub/internal/http/handlers"
	"github.com/learnhub/chathub/internal/store/mongo"
)

type fakeConversationsRepo struct {
	appendFn func(ctx context.Context, ownerEmail, subject string, entry conversation.Entry) error
	getFn    func(ctx context.Context, ownerEmail, subject string) (conversation.Conversation, error)
	listFn   func(ctx context.Context, ownerEmail string) ([]conversation.Conversation, error)
	deleteFn func(ctx context.Context, ownerEmail, subject string) error

	appendCalls int
}

func (f *fakeConversationsRepo) AppendEntry(ctx context.Context, ownerEmail, subject string, entry conversation.Entry) error {
	f.appendCalls++
	if f.appendFn != nil {
		return f.appendFn(ctx, ownerEmail, subject, entry)
	}
	return nil
}

func (f *fakeConversationsRepo) GetBySubject(ctx context.Context, ownerEmail, subject string) (conversation.Conversation, error) {
	if f.getFn != nil {
		return f.getFn(ctx, ownerEmail, subject)
	}
	return conversation.Conversation{}, mongo.ErrConversationNotFound
}

func (f *fakeConversationsRepo) ListByOwner(ctx context.Context, ownerEmail string) ([]conversation.Conversation, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ownerEmail)
	}
	return nil, nil
}

func (f *fakeConversationsRepo) Delete(ctx context.Context, ownerEmail, subject string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ownerEmail, subject)
	}
	return nil
}

type fakeCompleter struct {
	completeFn func(ctx context.Context, req gateway.Request) (string, error)
	calls      int
}

func (f *fakeCompleter) Complete(ctx context.Context, req gateway.Request) (string, error) {
	f.calls++
	if f.completeFn != nil {
		return f.completeFn(ctx, req)
	}
	return "an answer", nil
}

// pngBytes carries a real PNG signature so content sniffing sees image/png.
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

var pdfBytes = append([]byte("%PDF-1.4\n"), make([]byte, 64)...)

func TestAppendEntryJSON(t *testing.T) {
	claims := userClaims("ada@example.com", auth.RoleUser)

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeConversationsRepo)
		completerSetUp func(*fakeCompleter)
		wantStatusCode int
		wantAppends    int
		wantCompletes  int
	}{
		{
			name: "success",
			body: `{"subject":"biology","question":"What is mitosis?"}`,
			repoSetUp: func(f *fakeConversationsRepo) {
				f.appendFn = func(ctx context.Context, ownerEmail, subject string, entry conversation.Entry) error {
					if ownerEmail != "ada@example.com" {
						return errors.New("wrong owner")
					}
					if subject != "biology" {
						return errors.New("wrong subject")
					}
					if entry.Question == nil || *entry.Question != "What is mitosis?" {
						return errors.New("question not passed through")
					}
					if entry.Answer != "an answer" {
						return errors.New("answer not passed through")
					}
					if entry.ID == "" || entry.Timestamp.IsZero() {
						return errors.New("entry id or timestamp missing")
					}
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantAppends:    1,
			wantCompletes:  1,
		},
		{
			name:           "missing_subject",
			body:           `{"question":"What is mitosis?"}`,
			wantStatusCode: http.StatusBadRequest,
			wantAppends:    0,
			wantCompletes:  0,
		},
		{
			name:           "empty_question_without_attachment",
			body:           `{"subject":"biology"}`,
			wantStatusCode: http.StatusBadRequest,
			wantAppends:    0,
			wantCompletes:  0,
		},
		{
			name: "upstream_failure_persists_nothing",
			body: `{"subject":"biology","question":"What is mitosis?"}`,
			completerSetUp: func(f *fakeCompleter) {
				f.completeFn = func(ctx context.Context, req gateway.Request) (string, error) {
					return "", gateway.ErrUpstream
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantAppends:    0,
			wantCompletes:  1,
		},
		{
			name: "store_failure",
			body: `{"subject":"biology","question":"What is mitosis?"}`,
			repoSetUp: func(f *fakeConversationsRepo) {
				f.appendFn = func(ctx context.Context, ownerEmail, subject string, entry conversation.Entry) error {
					return errors.New("db down")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantAppends:    1,
			wantCompletes:  1,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeConversationsRepo{}
			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			completer := &fakeCompleter{}
			if tt.completerSetUp != nil {
				tt.completerSetUp(completer)
			}

			files := &fakeFiles{}

			h := handlers.NewChatHandler(repo, completer, files, nil)
			r := authedRouter(claims, http.MethodPost, "/api/chat", h.Append)

			w := doJSON(r, http.MethodPost, "/api/chat", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if repo.appendCalls != tt.wantAppends {
				t.Fatalf("got %d append calls, want %d", repo.appendCalls, tt.wantAppends)
			}
			if completer.calls != tt.wantCompletes {
				t.Fatalf("got %d completer calls, want %d", completer.calls, tt.wantCompletes)
			}
			if tt.wantStatusCode != http.StatusOK && files.saveCalls != 0 {
				t.Fatalf("failed request stored %d files", files.saveCalls)
			}
		})
	}
}

func TestAppendEntryAttachments(t *testing.T) {
	claims := userClaims("ada@example.com", auth.RoleUser)

	tests := []struct {
		name           string
		fileName       string
		fileContent    []byte
		question       string
		wantStatusCode int
		wantKind       string
		wantAppends    int
	}{
		{
			name:           "png_image",
			fileName:       "cell.png",
			fileContent:    pngBytes,
			question:       "What is in this image?",
			wantStatusCode: http.StatusOK,
			wantKind:       conversation.KindImage,
			wantAppends:    1,
		},
		{
			name:           "pdf_without_question",
			fileName:       "paper.pdf",
			fileContent:    pdfBytes,
			wantStatusCode: http.StatusOK,
			wantKind:       conversation.KindPDF,
			wantAppends:    1,
		},
		{
			name:           "executable_rejected",
			fileName:       "evil.png", // extension lies; sniffing decides
			fileContent:    []byte("MZ\x90\x00 not an image at all"),
			wantStatusCode: http.StatusBadRequest,
			wantAppends:    0,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var gotEntry conversation.Entry
			repo := &fakeConversationsRepo{
				appendFn: func(ctx context.Context, ownerEmail, subject string, entry conversation.Entry) error {
					gotEntry = entry
					return nil
				},
			}
			completer := &fakeCompleter{
				completeFn: func(ctx context.Context, req gateway.Request) (string, error) {
					if req.Attachment == nil {
						return "", errors.New("attachment not forwarded to gateway")
					}
					return "an answer", nil
				},
			}
			files := &fakeFiles{}

			h := handlers.NewChatHandler(repo, completer, files, nil)
			r := authedRouter(claims, http.MethodPost, "/api/chat", h.Append)

			fields := map[string]string{"subject": "biology"}
			if tt.question != "" {
				fields["question"] = tt.question
			}

			body, contentType := multipartBody(t, fields, "image", tt.fileName, tt.fileContent)
			req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("x-access-token", "test-token")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if repo.appendCalls != tt.wantAppends {
				t.Fatalf("got %d append calls, want %d", repo.appendCalls, tt.wantAppends)
			}

			if tt.wantStatusCode == http.StatusOK {
				if gotEntry.Attachment == nil {
					t.Fatal("entry stored without attachment")
				}
				if gotEntry.Attachment.Kind != tt.wantKind {
					t.Fatalf("got kind %q, want %q", gotEntry.Attachment.Kind, tt.wantKind)
				}
				if files.saveCalls != 1 {
					t.Fatalf("got %d save calls, want 1", files.saveCalls)
				}
			} else if files.saveCalls != 0 {
				t.Fatalf("rejected attachment stored %d files", files.saveCalls)
			}
		})
	}
}

func TestGetBySubjectHandler(t *testing.T) {
	claims := userClaims("ada@example.com", auth.RoleUser)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		subject        string
		repoSetUp      func(*fakeConversationsRepo)
		wantStatusCode int
	}{
		{
			name:    "success",
			subject: "biology",
			repoSetUp: func(f *fakeConversationsRepo) {
				f.getFn = func(ctx context.Context, ownerEmail, subject string) (conversation.Conversation, error) {
					return conversation.Conversation{
						Subject:     subject,
						OwnerEmail:  ownerEmail,
						LastUpdated: now,
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// other users' conversations surface as not found
			name:           "not_found",
			subject:        "physics",
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeConversationsRepo{}
			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewChatHandler(repo, &fakeCompleter{}, &fakeFiles{}, nil)
			r := authedRouter(claims, http.MethodGet, "/api/chat/:subject", h.GetBySubject)

			req := httptest.NewRequest(http.MethodGet, "/api/chat/"+tt.subject, nil)
			req.Header.Set("x-access-token", "test-token")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestListChatsHandler(t *testing.T) {
	claims := userClaims("ada@example.com", auth.RoleUser)

	repo := &fakeConversationsRepo{
		listFn: func(ctx context.Context, ownerEmail string) ([]conversation.Conversation, error) {
			return nil, nil
		},
	}

	h := handlers.NewChatHandler(repo, &fakeCompleter{}, &fakeFiles{}, nil)
	r := authedRouter(claims, http.MethodGet, "/api/chat", h.List)

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("x-access-token", "test-token")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	// empty result is a JSON array, not null
	var got []conversation.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got == nil {
		t.Fatal("expected [] for an owner with no chats")
	}
}

func TestDeleteChatHandler(t *testing.T) {
	claims := userClaims("ada@example.com", auth.RoleUser)

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeConversationsRepo)
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"subject":"biology"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			body: `{"subject":"ghosts"}`,
			repoSetUp: func(f *fakeConversationsRepo) {
				f.deleteFn = func(ctx context.Context, ownerEmail, subject string) error {
					return mongo.ErrConversationNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "missing_subject",
			body:           `{}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeConversationsRepo{}
			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewChatHandler(repo, &fakeCompleter{}, &fakeFiles{}, nil)
			r := authedRouter(claims, http.MethodPost, "/api/deletechat", h.Delete)

			w := doJSON(r, http.MethodPost, "/api/deletechat", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
