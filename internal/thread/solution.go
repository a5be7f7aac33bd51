package thread

// SolutionID returns the accepted answer of the thread: the first solution
// referenced by the first message, or "" when there is none.
func SolutionID(msgs []Message) string {
	if len(msgs) == 0 || len(msgs[0].SolutionIDs) == 0 {
		return ""
	}
	return msgs[0].SolutionIDs[0]
}

// FindMessage returns the message with the given id, if present.
func FindMessage(msgs []Message, id string) (Message, bool) {
	if id == "" {
		return Message{}, false
	}
	for _, msg := range msgs {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// Promote marks the visible block holding solutionID as the solution and
// points the first visible block at it, unless that block is a placeholder.
// It reports whether a block was promoted; an id that resolves to nothing
// leaves blocks unchanged.
func Promote(blocks []DisplayBlock, solutionID string) ([]DisplayBlock, bool) {
	out := make([]DisplayBlock, len(blocks))
	copy(out, blocks)
	if solutionID == "" {
		return out, false
	}

	promoted := false
	first := -1
	for i := range out {
		if !out[i].Visible {
			continue
		}
		if first < 0 {
			first = i
		}
		if out[i].RepresentativeMessageID == solutionID {
			out[i].IsSolution = true
			promoted = true
		}
	}
	if promoted && !out[first].Placeholder() {
		out[first].JumpToSolutionID = solutionID
	}
	return out, promoted
}
