package thread

// DefaultNoiseAuthorID is the indexing bot's own account. Its messages are
// never shown on a thread page.
const DefaultNoiseAuthorID = "958907348389339146"

// ExcludeAuthor returns msgs without the messages written by authorID. An
// empty authorID excludes nothing.
func ExcludeAuthor(msgs []Message, authorID string) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if authorID != "" && msg.Author.ID == authorID {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func dropAuthorBlocks(blocks []DisplayBlock, authorID string) []DisplayBlock {
	if authorID == "" {
		return blocks
	}
	out := make([]DisplayBlock, 0, len(blocks))
	for _, block := range blocks {
		if block.authorID == authorID {
			continue
		}
		out = append(out, block)
	}
	return out
}
