package thread

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyThread is returned when a thread has no messages to render.
var ErrEmptyThread = errors.New("thread has no messages")

// ExclusionOrder decides whether noise-excluded messages still count for
// merge and disclosure adjacency.
type ExclusionOrder int

const (
	// ExcludeBeforeAdjacency removes excluded messages first, so their
	// neighbours become adjacent.
	ExcludeBeforeAdjacency ExclusionOrder = iota
	// ExcludeAfterDisclosure keeps excluded messages in place while merging
	// and collapsing, then drops their blocks (and any placeholder they
	// carried) from the output.
	ExcludeAfterDisclosure
)

func (o ExclusionOrder) String() string {
	switch o {
	case ExcludeAfterDisclosure:
		return "after"
	default:
		return "before"
	}
}

// ParseExclusionOrder accepts "before" or "after". Empty means before.
func ParseExclusionOrder(value string) (ExclusionOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "before":
		return ExcludeBeforeAdjacency, nil
	case "after":
		return ExcludeAfterDisclosure, nil
	default:
		return ExcludeBeforeAdjacency, fmt.Errorf("unknown exclusion order %q", value)
	}
}

// Pipeline is the consolidation and disclosure pipeline for one thread page.
// The zero value excludes nothing.
type Pipeline struct {
	NoiseAuthorID string
	Exclusion     ExclusionOrder
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Blocks is the ordered sequence to render.
	Blocks []DisplayBlock
	// Trace keeps every block, including tombstones and suppressed run members.
	Trace       []DisplayBlock
	SolutionID  string
	Promoted    bool
	HiddenTotal int
}

// Run consolidates msgs for a viewer with the given membership.
func (p Pipeline) Run(msgs []Message, membership Membership) (Result, error) {
	if len(msgs) == 0 {
		return Result{}, ErrEmptyThread
	}

	solutionID := SolutionID(msgs)
	input := msgs
	if p.Exclusion == ExcludeBeforeAdjacency {
		input = ExcludeAuthor(msgs, p.NoiseAuthorID)
	}

	trace := Disclose(mergeBlocks(Merge(input, solutionID)), membership)
	if p.Exclusion == ExcludeAfterDisclosure {
		trace = dropAuthorBlocks(trace, p.NoiseAuthorID)
	}
	trace, promoted := Promote(trace, solutionID)

	result := Result{
		Blocks:     make([]DisplayBlock, 0, len(trace)),
		Trace:      trace,
		SolutionID: solutionID,
		Promoted:   promoted,
	}
	for _, block := range trace {
		if !block.Visible {
			continue
		}
		result.HiddenTotal += block.HiddenCount
		result.Blocks = append(result.Blocks, block)
	}
	return result, nil
}
