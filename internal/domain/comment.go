package domain

import "time"

// Comment is a message in a ticket thread. Internal comments are visible to admins only.
type Comment struct {
	ID         string
	TicketID   string
	UserID     string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}

// CommentView pairs a comment with its author.
type CommentView struct {
	Comment *Comment
	Author  *User
}
