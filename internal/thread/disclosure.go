package thread

// disclosureState is the fold accumulator: the length of the private run
// seen so far and the blocks emitted so far.
type disclosureState struct {
	run    int
	blocks []DisplayBlock
}

// Disclose applies the disclosure policy to a merged sequence. Hidden blocks
// (tombstones) pass through untouched and do not count for adjacency. For a
// viewer who is not a confirmed member every maximal run of private blocks
// is represented by its last block, which becomes a placeholder carrying the
// run length; the other members of the run are suppressed.
func Disclose(blocks []DisplayBlock, membership Membership) []DisplayBlock {
	next := nextVisible(blocks)
	state := disclosureState{blocks: make([]DisplayBlock, 0, len(blocks))}
	for i, block := range blocks {
		state = state.step(block, next[i], blocks, membership)
	}
	return state.blocks
}

func (s disclosureState) step(block DisplayBlock, next int, all []DisplayBlock, membership Membership) disclosureState {
	if !block.Visible {
		s.blocks = append(s.blocks, block)
		return s
	}
	if block.Public || membership.DisclosesPrivate() {
		s.run = 0
		s.blocks = append(s.blocks, block)
		return s
	}
	s.run++
	if next >= 0 && !all[next].Public {
		s.blocks = append(s.blocks, suppressed(block))
		return s
	}
	s.blocks = append(s.blocks, placeholder(block, s.run))
	s.run = 0
	return s
}

// nextVisible maps each index to the index of the next visible block, or -1.
func nextVisible(blocks []DisplayBlock) []int {
	next := make([]int, len(blocks))
	following := -1
	for i := len(blocks) - 1; i >= 0; i-- {
		next[i] = following
		if blocks[i].Visible {
			following = i
		}
	}
	return next
}

func suppressed(block DisplayBlock) DisplayBlock {
	hidden := placeholder(block, 0)
	hidden.Visible = false
	return hidden
}

func placeholder(block DisplayBlock, count int) DisplayBlock {
	return DisplayBlock{
		RepresentativeMessageID: block.RepresentativeMessageID,
		CreatedAt:               block.CreatedAt,
		HiddenCount:             count,
		Visible:                 true,
		authorID:                block.authorID,
	}
}
