package thread

import (
	"errors"
	"strings"
	"testing"
)

func blockIDs(blocks []DisplayBlock) string {
	ids := make([]string, 0, len(blocks))
	for _, block := range blocks {
		id := block.RepresentativeMessageID
		if block.Placeholder() {
			id += "(" + strings.Repeat("*", block.HiddenCount) + ")"
		}
		ids = append(ids, id)
	}
	return strings.Join(ids, ",")
}

func TestRun_EmptyThread(t *testing.T) {
	_, err := Pipeline{}.Run(nil, InServer)
	if !errors.Is(err, ErrEmptyThread) {
		t.Fatalf("err=%v, want ErrEmptyThread", err)
	}
}

func TestRun_CollapsesPrivateRunForOutsider(t *testing.T) {
	msgs := []Message{
		msg("A", "x", "public a"),
		private(msg("B", "y", "secret b")),
		private(msg("C", "z", "secret c")),
		msg("D", "x", "public d"),
	}

	for _, membership := range []Membership{NotInServer, Unknown, Membership("garbage")} {
		result, err := Pipeline{}.Run(msgs, membership)
		if err != nil {
			t.Fatalf("Run(%s): %v", membership, err)
		}
		if got := blockIDs(result.Blocks); got != "A,C(**),D" {
			t.Fatalf("%s: blocks=%s, want A,C(**),D", membership, got)
		}
		hidden := result.Blocks[1]
		if hidden.MergedContent != "" || hidden.Author.ID != "" || len(hidden.Attachments) != 0 {
			t.Fatalf("%s: placeholder leaks content: %+v", membership, hidden)
		}
		if result.HiddenTotal != 2 {
			t.Fatalf("%s: hidden total=%d, want 2", membership, result.HiddenTotal)
		}
	}
}

func TestRun_MemberSeesEverything(t *testing.T) {
	msgs := []Message{
		msg("A", "x", "public a"),
		private(msg("B", "y", "secret b")),
		private(msg("C", "z", "secret c")),
		msg("D", "x", "public d"),
	}

	result, err := Pipeline{}.Run(msgs, InServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := blockIDs(result.Blocks); got != "A,B,C,D" {
		t.Fatalf("blocks=%s, want A,B,C,D", got)
	}
	for i, block := range result.Blocks {
		if block.MergedContent != msgs[i].Content {
			t.Fatalf("block %d content=%q, want %q", i, block.MergedContent, msgs[i].Content)
		}
		if block.Placeholder() {
			t.Fatalf("block %d is a placeholder for a member", i)
		}
	}
}

func TestRun_PlaceholderPerMaximalRun(t *testing.T) {
	msgs := []Message{
		private(msg("1", "x", "p")),
		msg("2", "x", "a"),
		private(msg("3", "x", "p")),
		private(msg("4", "y", "p")),
		private(msg("5", "x", "p")),
		msg("6", "y", "b"),
		private(msg("7", "y", "p")),
	}

	result, err := Pipeline{}.Run(msgs, NotInServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := blockIDs(result.Blocks); got != "1(*),2,5(***),6,7(*)" {
		t.Fatalf("blocks=%s", got)
	}

	publicCount := 0
	for _, m := range msgs {
		if m.Public {
			publicCount++
		}
	}
	contentBlocks := 0
	for _, block := range result.Blocks {
		if !block.Placeholder() {
			contentBlocks++
		}
	}
	if contentBlocks > publicCount {
		t.Fatalf("content blocks=%d exceed public messages=%d", contentBlocks, publicCount)
	}
}

func TestRun_MergeThenDisclose(t *testing.T) {
	msgs := []Message{
		msg("1", "x", "hello"),
		msg("2", "x", "anyone?"),
		private(msg("3", "y", "dm-ish")),
		msg("4", "z", "answer"),
	}

	result, err := Pipeline{}.Run(msgs, Unknown)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := blockIDs(result.Blocks); got != "2,3(*),4" {
		t.Fatalf("blocks=%s", got)
	}
	if result.Blocks[0].MergedContent != "hello\nanyone?" {
		t.Fatalf("merged content=%q", result.Blocks[0].MergedContent)
	}
	if len(result.Trace) != 4 || result.Trace[0].Visible {
		t.Fatalf("trace should keep the tombstone for message 1: %+v", result.Trace)
	}
}

func TestRun_PromotesSolutionAndJumpLink(t *testing.T) {
	first := msg("1", "x", "how do I?")
	first.SolutionIDs = []string{"3", "4"}
	msgs := []Message{
		first,
		msg("2", "y", "maybe"),
		msg("3", "y", "this works"),
		msg("4", "y", "or this"),
	}

	for i := 0; i < 2; i++ {
		result, err := Pipeline{}.Run(msgs, InServer)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.SolutionID != "3" || !result.Promoted {
			t.Fatalf("solution=%q promoted=%v", result.SolutionID, result.Promoted)
		}
		promoted := 0
		for _, block := range result.Blocks {
			if block.IsSolution {
				promoted++
				if block.RepresentativeMessageID != "3" {
					t.Fatalf("promoted %s, want 3", block.RepresentativeMessageID)
				}
			}
		}
		if promoted != 1 {
			t.Fatalf("promoted blocks=%d, want 1", promoted)
		}
		if result.Blocks[0].JumpToSolutionID != "3" {
			t.Fatalf("first block jump=%q, want 3", result.Blocks[0].JumpToSolutionID)
		}
		// "2" must not absorb the solution and "4" must stay separate from it.
		if got := blockIDs(result.Blocks); got != "1,2,3,4" {
			t.Fatalf("blocks=%s", got)
		}
	}
}

func TestRun_SolutionIsFirstMessage(t *testing.T) {
	first := msg("1", "x", "answered myself")
	first.SolutionIDs = []string{"1"}
	msgs := []Message{first, msg("2", "x", "thanks")}

	result, err := Pipeline{}.Run(msgs, InServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Blocks[0].IsSolution || result.Blocks[0].JumpToSolutionID != "1" {
		t.Fatalf("first block=%+v, want self-referencing solution", result.Blocks[0])
	}
}

func TestRun_MissingSolutionIsSilent(t *testing.T) {
	first := msg("1", "x", "q")
	first.SolutionIDs = []string{"does-not-exist"}

	result, err := Pipeline{}.Run([]Message{first, msg("2", "y", "a")}, InServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Promoted {
		t.Fatal("expected no promotion")
	}
	for _, block := range result.Blocks {
		if block.IsSolution || block.JumpToSolutionID != "" {
			t.Fatalf("unexpected solution markers: %+v", block)
		}
	}
}

func TestRun_SolutionSuppressedInsidePrivateRun(t *testing.T) {
	first := msg("1", "x", "q")
	first.SolutionIDs = []string{"2"}
	msgs := []Message{first, private(msg("2", "y", "fix")), private(msg("3", "y", "more"))}

	result, err := Pipeline{}.Run(msgs, NotInServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Promoted {
		t.Fatalf("suppressed solution should not be promoted: %s", blockIDs(result.Blocks))
	}
}

func TestRun_NoJumpLinkOnPlaceholder(t *testing.T) {
	first := private(msg("1", "x", "q"))
	first.SolutionIDs = []string{"3"}
	msgs := []Message{first, msg("2", "y", "try"), msg("3", "y", "fix")}

	result, err := Pipeline{}.Run(msgs, NotInServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := blockIDs(result.Blocks); got != "1(*),2,3" {
		t.Fatalf("blocks=%s, want 1(*),2,3", got)
	}
	if !result.Promoted || !result.Blocks[2].IsSolution {
		t.Fatalf("solution not promoted: %+v", result.Blocks[2])
	}
	for _, block := range result.Blocks {
		if block.JumpToSolutionID != "" {
			t.Fatalf("block %s carries a jump link: %+v", block.RepresentativeMessageID, block)
		}
	}

	result, err = Pipeline{}.Run(msgs, InServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Blocks[0].JumpToSolutionID != "3" {
		t.Fatalf("member jump=%q, want 3", result.Blocks[0].JumpToSolutionID)
	}
}

func TestRun_NoiseExcludedBeforeAdjacency(t *testing.T) {
	bot := DefaultNoiseAuthorID
	msgs := []Message{
		msg("1", "x", "part one"),
		msg("2", bot, "indexed!"),
		msg("3", "x", "part two"),
		private(msg("4", "y", "p")),
		private(msg("5", bot, "p")),
		private(msg("6", "z", "p")),
	}

	result, err := Pipeline{NoiseAuthorID: bot}.Run(msgs, NotInServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := blockIDs(result.Blocks); got != "3,6(**)" {
		t.Fatalf("blocks=%s, want 3,6(**)", got)
	}
	if result.Blocks[0].MergedContent != "part one\npart two" {
		t.Fatalf("content=%q", result.Blocks[0].MergedContent)
	}
	assertNoAuthor(t, result, bot, msgs)
}

func TestRun_NoiseExcludedAfterDisclosure(t *testing.T) {
	bot := DefaultNoiseAuthorID
	msgs := []Message{
		msg("1", "x", "part one"),
		msg("2", bot, "indexed!"),
		msg("3", "x", "part two"),
		private(msg("4", "y", "p")),
		private(msg("5", bot, "p")),
		msg("6", "z", "end"),
	}

	result, err := Pipeline{NoiseAuthorID: bot, Exclusion: ExcludeAfterDisclosure}.Run(msgs, NotInServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The bot message still breaks the merge run, and the placeholder it
	// carried leaves with it.
	if got := blockIDs(result.Blocks); got != "1,3,6" {
		t.Fatalf("blocks=%s, want 1,3,6", got)
	}
	assertNoAuthor(t, result, bot, msgs)
}

func TestRun_OnlyNoiseMessages(t *testing.T) {
	bot := DefaultNoiseAuthorID
	result, err := Pipeline{NoiseAuthorID: bot}.Run([]Message{msg("1", bot, "hi")}, InServer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Blocks) != 0 {
		t.Fatalf("blocks=%s, want none", blockIDs(result.Blocks))
	}
}

func assertNoAuthor(t *testing.T, result Result, authorID string, msgs []Message) {
	t.Helper()
	byID := map[string]Message{}
	for _, m := range msgs {
		byID[m.ID] = m
	}
	for _, block := range result.Blocks {
		if byID[block.RepresentativeMessageID].Author.ID == authorID {
			t.Fatalf("block %s originates from excluded author", block.RepresentativeMessageID)
		}
		for _, id := range block.MergedIDs {
			if byID[id].Author.ID == authorID {
				t.Fatalf("block %s merges content from excluded author", block.RepresentativeMessageID)
			}
		}
	}
}

func TestParseExclusionOrder(t *testing.T) {
	cases := map[string]ExclusionOrder{
		"":        ExcludeBeforeAdjacency,
		"before":  ExcludeBeforeAdjacency,
		" AFTER ": ExcludeAfterDisclosure,
	}
	for input, want := range cases {
		got, err := ParseExclusionOrder(input)
		if err != nil || got != want {
			t.Fatalf("ParseExclusionOrder(%q)=%v,%v want %v", input, got, err, want)
		}
	}
	if _, err := ParseExclusionOrder("sideways"); err == nil {
		t.Fatal("expected error for unknown order")
	}
}

func TestParseMembership(t *testing.T) {
	if ParseMembership("in_server") != InServer {
		t.Fatal("in_server not parsed")
	}
	if ParseMembership("not_in_server") != NotInServer {
		t.Fatal("not_in_server not parsed")
	}
	if ParseMembership("maybe") != Unknown {
		t.Fatal("unrecognised value should be unknown")
	}
}
