package thread

import (
	"strings"
	"testing"
)

func msg(id, author, content string) Message {
	return Message{ID: id, Author: Author{ID: author, Name: author}, Content: content, Public: true}
}

func private(m Message) Message {
	m.Public = false
	return m
}

func withAttachment(m Message) Message {
	m.Attachments = []Attachment{{ID: "att-" + m.ID, Filename: "log.txt"}}
	return m
}

func survivorContents(entries []MergeEntry) []string {
	var out []string
	for _, entry := range Survivors(entries) {
		out = append(out, entry.Message.Content)
	}
	return out
}

func TestMerge_CollapsesSingleAuthorRun(t *testing.T) {
	msgs := []Message{
		msg("1", "x", "first"),
		msg("2", "x", "second"),
		msg("3", "x", "third"),
	}

	entries := Merge(msgs, "")
	if len(entries) != len(msgs) {
		t.Fatalf("len(entries)=%d, want %d", len(entries), len(msgs))
	}
	survivors := Survivors(entries)
	if len(survivors) != 1 {
		t.Fatalf("survivors=%d, want 1", len(survivors))
	}
	if got, want := survivors[0].Message.Content, "first\nsecond\nthird"; got != want {
		t.Fatalf("content=%q, want %q", got, want)
	}
	if survivors[0].Message.ID != "3" {
		t.Fatalf("representative=%s, want last message 3", survivors[0].Message.ID)
	}
	if got := strings.Join(survivors[0].MergedIDs, ","); got != "1,2,3" {
		t.Fatalf("merged ids=%s, want 1,2,3", got)
	}
	if !entries[0].Merged || !entries[1].Merged || entries[2].Merged {
		t.Fatalf("tombstones=%v,%v,%v, want true,true,false", entries[0].Merged, entries[1].Merged, entries[2].Merged)
	}
}

func TestMerge_NewAuthorBreaksRun(t *testing.T) {
	msgs := []Message{
		msg("1", "x", "a"),
		msg("2", "x", "b"),
		msg("3", "x", "c"),
		msg("4", "y", "d"),
	}

	got := survivorContents(Merge(msgs, ""))
	if len(got) != 2 {
		t.Fatalf("blocks=%d, want 2 (%q)", len(got), got)
	}
	if got[0] != "a\nb\nc" || got[1] != "d" {
		t.Fatalf("contents=%q", got)
	}
}

func TestMerge_AttachmentNeverMerges(t *testing.T) {
	msgs := []Message{
		msg("1", "x", "before"),
		withAttachment(msg("2", "x", "file")),
		msg("3", "x", "after"),
	}

	got := survivorContents(Merge(msgs, ""))
	want := []string{"before", "file", "after"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("contents=%q, want %q", got, want)
	}
}

func TestMerge_EmbedNeverMerges(t *testing.T) {
	embedded := msg("2", "x", "link")
	embedded.Embeds = []Embed{{URL: "https://example.com"}}
	msgs := []Message{msg("1", "x", "a"), embedded}

	if got := survivorContents(Merge(msgs, "")); len(got) != 2 {
		t.Fatalf("contents=%q, want 2 blocks", got)
	}
}

func TestMerge_SolutionNeverMerges(t *testing.T) {
	msgs := []Message{
		msg("1", "x", "question"),
		msg("2", "y", "try this"),
		msg("3", "y", "the fix"),
		msg("4", "y", "glad it helped"),
	}

	got := survivorContents(Merge(msgs, "3"))
	want := []string{"question", "try this", "the fix", "glad it helped"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("contents=%q, want %q", got, want)
	}
}

func TestMerge_PrivateNeverMerges(t *testing.T) {
	msgs := []Message{
		msg("1", "x", "a"),
		private(msg("2", "x", "b")),
		private(msg("3", "x", "c")),
		msg("4", "x", "d"),
	}

	if got := survivorContents(Merge(msgs, "")); len(got) != 4 {
		t.Fatalf("contents=%q, want 4 blocks", got)
	}
}

func TestMerge_FinalMessageAlwaysFlushes(t *testing.T) {
	msgs := []Message{msg("1", "x", "only")}
	entries := Merge(msgs, "")
	if len(entries) != 1 || entries[0].Merged {
		t.Fatalf("entries=%+v, want one survivor", entries)
	}
	if entries[0].Message.Content != "only" {
		t.Fatalf("content=%q", entries[0].Message.Content)
	}
}

func TestMerge_EmptyInput(t *testing.T) {
	if got := Merge(nil, ""); len(got) != 0 {
		t.Fatalf("len=%d, want 0", len(got))
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	msgs := []Message{msg("1", "x", "a"), msg("2", "x", "b")}
	_ = Merge(msgs, "")
	if msgs[1].Content != "b" {
		t.Fatalf("input mutated: %q", msgs[1].Content)
	}
}
