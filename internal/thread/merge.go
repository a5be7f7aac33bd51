package thread

import "strings"

// MergeEntry is one position of the merged sequence. Entries with Merged set
// are tombstones whose content was carried forward into the next entry.
type MergeEntry struct {
	Message   Message
	MergedIDs []string
	Merged    bool
}

// mergeable reports whether m may take part in a merge run at all.
func mergeable(m Message, solutionID string) bool {
	return m.plain() && m.Public && m.ID != solutionID
}

func absorbs(current, next Message, solutionID string) bool {
	return current.Author.ID == next.Author.ID &&
		mergeable(current, solutionID) &&
		mergeable(next, solutionID)
}

// Merge collapses each maximal run of consecutive plain public messages from
// the same author into the last message of the run, joining contents with a
// newline. The output has the same length as msgs; earlier members of a run
// come back as tombstones. The final message always flushes.
func Merge(msgs []Message, solutionID string) []MergeEntry {
	out := make([]MergeEntry, 0, len(msgs))
	var buf strings.Builder
	var ids []string
	for i, msg := range msgs {
		buf.WriteString(msg.Content)
		ids = append(ids, msg.ID)
		if i+1 < len(msgs) && absorbs(msg, msgs[i+1], solutionID) {
			buf.WriteByte('\n')
			out = append(out, MergeEntry{Message: msg, Merged: true})
			continue
		}
		flushed := msg
		flushed.Content = buf.String()
		out = append(out, MergeEntry{Message: flushed, MergedIDs: ids})
		buf.Reset()
		ids = nil
	}
	return out
}

// Survivors drops tombstones.
func Survivors(entries []MergeEntry) []MergeEntry {
	out := make([]MergeEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Merged {
			out = append(out, entry)
		}
	}
	return out
}

func mergeBlocks(entries []MergeEntry) []DisplayBlock {
	blocks := make([]DisplayBlock, 0, len(entries))
	for _, entry := range entries {
		if entry.Merged {
			blocks = append(blocks, DisplayBlock{
				RepresentativeMessageID: entry.Message.ID,
				Author:                  entry.Message.Author,
				Public:                  entry.Message.Public,
				CreatedAt:               entry.Message.CreatedAt,
				authorID:                entry.Message.Author.ID,
			})
			continue
		}
		var ids []string
		if len(entry.MergedIDs) > 1 {
			ids = entry.MergedIDs
		}
		blocks = append(blocks, blockFromMessage(entry.Message, ids))
	}
	return blocks
}
