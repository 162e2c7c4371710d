package conversation

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Attachment kinds. The kind is chosen once at upload time from the file's
// media type, not re-derived from the extension at every read site.
const (
	KindImage = "image"
	KindPDF   = "pdf"
)

// Attachment is a reference to an uploaded file backing an entry.
type Attachment struct {
	Ref  string `json:"ref" bson:"ref"`
	Kind string `json:"kind" bson:"kind"`
}

// Entry is one question/answer exchange. Entries are append-only; the
// download counter is the only field that changes after the fact.
type Entry struct {
	ID            string      `json:"entryId" bson:"entry_id"`
	Question      *string     `json:"question,omitempty" bson:"question,omitempty"`
	Answer        string      `json:"answer" bson:"answer"`
	Timestamp     time.Time   `json:"timestamp" bson:"timestamp"`
	Attachment    *Attachment `json:"attachment,omitempty" bson:"attachment,omitempty"`
	DownloadCount int         `json:"downloadCount" bson:"download_count"`
}

// Conversation is one subject thread owned by exactly one user.
// (Subject, OwnerEmail) is unique; two users may reuse a subject string.
type Conversation struct {
	ID          bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Subject     string        `json:"subject" bson:"subject"`
	OwnerEmail  string        `json:"email" bson:"owner_email"`
	Entries     []Entry       `json:"chat" bson:"entries"`
	LastUpdated time.Time     `json:"lastUpdated" bson:"last_updated"`
}

// Summary holds the admin dashboard aggregates.
type Summary struct {
	TotalUsers   int `json:"totalUsers"`
	TotalEntries int `json:"totalEntries"`
	TextEntries  int `json:"textEntries"`
	ImageEntries int `json:"imageEntries"`
	PDFEntries   int `json:"pdfEntries"`
}
