package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/learnhub/chathub/internal/domain/conversation"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ConversationsRepo struct {
	coll *mongo.Collection

	Observe func(op string, fn func() error) error
}

func NewConversationsRepo(coll *mongo.Collection) *ConversationsRepo {
	return &ConversationsRepo{coll: coll}
}

func (r *ConversationsRepo) do(op string, fn func() error) error {
	if r.Observe != nil {
		return r.Observe(op, fn)
	}
	return fn()
}

// AppendEntry adds one entry to the conversation keyed by (subject, owner).
// The whole thing is a single upsert: if the document is absent it is
// created with the entry, otherwise the entry is pushed onto the existing
// array. Concurrent appends to the same key serialize inside the store and
// neither write is lost.
func (r *ConversationsRepo) AppendEntry(ctx context.Context, ownerEmail, subject string, entry conversation.Entry) error {
	filter := bson.M{"subject": subject, "owner_email": ownerEmail}

	update := bson.M{
		"$push": bson.M{"entries": entry},
		"$set":  bson.M{"last_updated": entry.Timestamp},
	}

	return r.do("conversations.append", func() error {
		_, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
		return err
	})
}

// GetBySubject returns the conversation matching both subject and owner.
// A subject owned by someone else is indistinguishable from a missing one.
func (r *ConversationsRepo) GetBySubject(ctx context.Context, ownerEmail, subject string) (conversation.Conversation, error) {
	var conv conversation.Conversation

	err := r.do("conversations.get", func() error {
		err := r.coll.FindOne(ctx, bson.M{"subject": subject, "owner_email": ownerEmail}).Decode(&conv)
		if err == mongo.ErrNoDocuments {
			return ErrConversationNotFound
		}
		return err
	})
	if err != nil {
		return conversation.Conversation{}, err
	}

	return conv, nil
}

// ListByOwner returns the caller's conversations, most recently active first.
func (r *ConversationsRepo) ListByOwner(ctx context.Context, ownerEmail string) ([]conversation.Conversation, error) {
	opts := options.Find().SetSort(bson.M{"last_updated": -1})

	var conversations []conversation.Conversation

	err := r.do("conversations.list", func() error {
		cursor, err := r.coll.Find(ctx, bson.M{"owner_email": ownerEmail}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		return cursor.All(ctx, &conversations)
	})
	if err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *ConversationsRepo) Delete(ctx context.Context, ownerEmail, subject string) error {
	return r.do("conversations.delete", func() error {
		result, err := r.coll.DeleteOne(ctx, bson.M{"subject": subject, "owner_email": ownerEmail})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
}

// FindEntry locates the conversation containing the entry and returns both.
func (r *ConversationsRepo) FindEntry(ctx context.Context, entryID string) (conversation.Conversation, conversation.Entry, error) {
	var conv conversation.Conversation

	err := r.do("conversations.find_entry", func() error {
		err := r.coll.FindOne(ctx, bson.M{"entries.entry_id": entryID}).Decode(&conv)
		if err == mongo.ErrNoDocuments {
			return ErrEntryNotFound
		}
		return err
	})
	if err != nil {
		return conversation.Conversation{}, conversation.Entry{}, err
	}

	for _, e := range conv.Entries {
		if e.ID == entryID {
			return conv, e, nil
		}
	}

	return conversation.Conversation{}, conversation.Entry{}, ErrEntryNotFound
}

// IncrementDownloadCount bumps the counter of the matched entry in place.
func (r *ConversationsRepo) IncrementDownloadCount(ctx context.Context, entryID string) error {
	return r.do("conversations.inc_download", func() error {
		result, err := r.coll.UpdateOne(
			ctx,
			bson.M{"entries.entry_id": entryID},
			bson.M{"$inc": bson.M{"entries.$.download_count": 1}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrEntryNotFound
		}
		return nil
	})
}

// All returns every conversation; used by the admin dashboard join.
func (r *ConversationsRepo) All(ctx context.Context) ([]conversation.Conversation, error) {
	opts := options.Find().SetSort(bson.M{"last_updated": -1})

	var conversations []conversation.Conversation

	err := r.do("conversations.all", func() error {
		cursor, err := r.coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		return cursor.All(ctx, &conversations)
	})
	if err != nil {
		return nil, err
	}

	return conversations, nil
}

// Summarize scans all conversations and classifies every entry by its
// attachment kind. Legacy documents without a kind tag fall back to the
// file extension of the reference.
func (r *ConversationsRepo) Summarize(ctx context.Context, totalUsers int64) (conversation.Summary, error) {
	conversations, err := r.All(ctx)
	if err != nil {
		return conversation.Summary{}, err
	}

	s := conversation.Summary{TotalUsers: int(totalUsers)}

	for _, conv := range conversations {
		for _, e := range conv.Entries {
			s.TotalEntries++

			switch classifyEntry(e) {
			case conversation.KindImage:
				s.ImageEntries++
			case conversation.KindPDF:
				s.PDFEntries++
			default:
				s.TextEntries++
			}
		}
	}

	return s, nil
}

func classifyEntry(e conversation.Entry) string {
	if e.Attachment == nil {
		return ""
	}
	if e.Attachment.Kind != "" {
		return e.Attachment.Kind
	}

	if strings.HasSuffix(strings.ToLower(e.Attachment.Ref), ".pdf") {
		return conversation.KindPDF
	}
	return conversation.KindImage
}

// NewEntry builds a timestamped entry with a fresh id.
func NewEntry(question *string, answer string, attachment *conversation.Attachment) conversation.Entry {
	return conversation.Entry{
		ID:         bson.NewObjectID().Hex(),
		Question:   question,
		Answer:     answer,
		Timestamp:  time.Now().UTC(),
		Attachment: attachment,
	}
}
