package store

import "time"

type Server struct {
	ID           string
	Name         string
	Description  *string
	Icon         *string
	CustomDomain *string
	InviteCode   *string
}

type Channel struct {
	ID       string
	ServerID string
	ParentID *string
	Name     string
	Type     int
	// IndexingEnabled is false when an operator has taken the channel off
	// the site. Threads follow their parent channel.
	IndexingEnabled bool
}

// IsThread reports whether the channel is a thread under another channel.
func (c Channel) IsThread() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

type Attachment struct {
	ID          string
	MessageID   string
	Filename    string
	ContentType string
	Size        int64
	ObjectKey   string
	URL         string
}

type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type Message struct {
	ID           string
	ChannelID    string
	ServerID     string
	AuthorID     string
	AuthorName   string
	AuthorAvatar *string
	Content      string
	Public       bool
	CreatedAt    time.Time
	Attachments  []Attachment
	Embeds       []Embed
	SolutionIDs  []string
}

// Question is one entry of a channel listing: the thread and its starter.
type Question struct {
	Thread  Channel
	Message Message
}
