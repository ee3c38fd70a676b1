package domain

import "time"

// Comment captures communications in a ticket thread. Comments are soft
// deleted; rows are never physically removed.
type Comment struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Body      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// AttachmentReference stores metadata for ticket attachments. Blob storage
// is handled by an external collaborator; only the linkage is recorded here.
type AttachmentReference struct {
	ID         int64
	TicketID   int64
	UploaderID int64
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
