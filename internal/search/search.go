package search

// Result is a single message hit returned to the caller.
type Result struct {
	MessageID  string `json:"messageId"`
	ThreadID   string `json:"threadId,omitempty"`
	ThreadName string `json:"threadName,omitempty"`
	ChannelID  string `json:"channelId"`
	ServerID   string `json:"serverId"`
	AuthorName string `json:"authorName"`
	Snippet    string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text            string
	ServerID        string // empty = all servers
	ExcludeThreadID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// MessageRecord is the data we index for a public message.
type MessageRecord struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
	ChannelID  string `json:"channelId"`
	ThreadID   string `json:"threadId"`
	ThreadName string `json:"threadName"`
	ServerID   string `json:"serverId"`
	CreatedAt  int64  `json:"createdAt"`
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
