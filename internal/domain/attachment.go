package domain

import "time"

// Attachment stores metadata for an uploaded file.
type Attachment struct {
	ID           string
	TicketID     string
	UploadedByID string
	FileName     string
	FilePath     string
	FileSize     int64
	MimeType     string
	CreatedAt    time.Time
}

// AttachmentView pairs an attachment with its uploader.
type AttachmentView struct {
	Attachment *Attachment
	UploadedBy *User
}
