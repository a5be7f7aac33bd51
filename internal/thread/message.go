// Package thread turns the archived messages of a chat thread into the ordered
// display blocks a message page renders.
package thread

import (
	"strings"
	"time"
)

// Membership is the viewer's standing in the server that owns a thread.
type Membership string

const (
	InServer    Membership = "in_server"
	NotInServer Membership = "not_in_server"
	Unknown     Membership = "unknown"
)

// DisclosesPrivate reports whether non-public content may be shown. Anything
// other than a confirmed member gets the restrictive behavior.
func (m Membership) DisclosesPrivate() bool {
	return m == InServer
}

// ParseMembership maps a stored or transported value to a Membership,
// falling back to Unknown.
func ParseMembership(value string) Membership {
	switch Membership(strings.ToLower(strings.TrimSpace(value))) {
	case InServer:
		return InServer
	case NotInServer:
		return NotInServer
	default:
		return Unknown
	}
}

type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	ObjectKey   string `json:"-"`
	URL         string `json:"url"`
}

type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Message is one archived chat message. SolutionIDs is only populated on the
// first message of a thread.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channelId"`
	Author      Author       `json:"author"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	Embeds      []Embed      `json:"embeds"`
	Public      bool         `json:"public"`
	SolutionIDs []string     `json:"solutionIds,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (m Message) plain() bool {
	return len(m.Attachments) == 0 && len(m.Embeds) == 0
}

// DisplayBlock is one unit of a rendered thread: a single message, a run of
// merged messages, or a placeholder standing in for hidden private messages.
type DisplayBlock struct {
	RepresentativeMessageID string       `json:"id"`
	Author                  Author       `json:"author"`
	MergedContent           string       `json:"content"`
	MergedIDs               []string     `json:"mergedIds,omitempty"`
	Attachments             []Attachment `json:"attachments"`
	Embeds                  []Embed      `json:"embeds"`
	Public                  bool         `json:"public"`
	CreatedAt               time.Time    `json:"createdAt"`
	IsSolution              bool         `json:"isSolution"`
	HiddenCount             int          `json:"hiddenCount"`
	JumpToSolutionID        string       `json:"jumpToSolutionId,omitempty"`
	Visible                 bool         `json:"-"`

	authorID string
}

// Placeholder reports whether the block only carries a count of hidden messages.
func (b DisplayBlock) Placeholder() bool {
	return b.HiddenCount > 0
}

func blockFromMessage(m Message, mergedIDs []string) DisplayBlock {
	return DisplayBlock{
		RepresentativeMessageID: m.ID,
		Author:                  m.Author,
		MergedContent:           m.Content,
		MergedIDs:               mergedIDs,
		Attachments:             m.Attachments,
		Embeds:                  m.Embeds,
		Public:                  m.Public,
		CreatedAt:               m.CreatedAt,
		Visible:                 true,
		authorID:                m.Author.ID,
	}
}
