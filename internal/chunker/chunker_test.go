package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// nonSpace strips all whitespace so coverage can be compared independent of
// the separators chunking inserts or removes.
func nonSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func assertInvariants(t *testing.T, text string, chunks []string, maxSize int) {
	t.Helper()
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if c != strings.TrimSpace(c) {
			t.Errorf("chunk %d is not trimmed: %q", i, c)
		}
		if Size(c) > maxSize && strings.Contains(c, "\n") {
			t.Errorf("chunk %d has %d chars (> %d) and more than one line", i, Size(c), maxSize)
		}
	}
	if got, want := nonSpace(strings.Join(chunks, "")), nonSpace(text); got != want {
		t.Errorf("chunks do not cover the input in order\n got: %q\nwant: %q", got, want)
	}
}

func TestSplit_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\n", "\t \n"} {
		if got := Split(in, 100); len(got) != 0 {
			t.Errorf("Split(%q) = %q, want empty", in, got)
		}
	}
}

func TestSplit_PagesWhenTheyFit(t *testing.T) {
	text := "Statement header\n--- PAGE 1 ---\n06/23 STARBUCKS 5.65\n--- PAGE 2 ---\n06/24 SHELL 40.00\n"

	got := Split(text, 100)
	want := []string{
		"Statement header",
		"--- PAGE 1 ---\n06/23 STARBUCKS 5.65",
		"--- PAGE 2 ---\n06/24 SHELL 40.00",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
	assertInvariants(t, text, got, 100)
}

func TestSplit_PageFallbackWhenAPageIsTooLarge(t *testing.T) {
	var b strings.Builder
	b.WriteString("--- PAGE 1 ---\nshort page\n")
	b.WriteString("--- PAGE 2 ---\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "07/%02d/25 MERCHANT NUMBER %02d 12.34\n\n", i+1, i)
	}

	if _, ok := SplitPages(b.String(), 120); ok {
		t.Fatal("SplitPages() should refuse when a page exceeds the limit")
	}

	got := Split(b.String(), 120)
	if len(got) < 2 {
		t.Fatalf("expected several paragraph chunks, got %d", len(got))
	}
	assertInvariants(t, b.String(), got, 120)
}

func TestSplitParagraphs_GreedyPacking(t *testing.T) {
	text := "aaaa\n\nbbbb\n\ncccc\n\ndddd"

	got := SplitParagraphs(text, 10)
	want := []string{"aaaa\n\nbbbb", "cccc\n\ndddd"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitParagraphs() = %q, want %q", got, want)
	}
}

func TestSplitParagraphs_OversizedParagraphSplitsByLine(t *testing.T) {
	text := "intro\n\nline one\nline two\nline three\nline four\n\noutro"

	got := SplitParagraphs(text, 20)
	want := []string{"intro", "line one\nline two", "line three\nline four", "outro"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitParagraphs() = %q, want %q", got, want)
	}
	assertInvariants(t, text, got, 20)
}

func TestSplitParagraphs_LongLineIsNeverTruncated(t *testing.T) {
	long := strings.Repeat("X", 50)
	text := "before\n" + long + "\nafter"

	got := SplitParagraphs(text, 10)
	want := []string{"before", long, "after"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitParagraphs() = %q, want %q", got, want)
	}
	assertInvariants(t, text, got, 10)
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	text := "café £5.00\n\nnaïve €3.00"
	// 23 characters in total, but 28 bytes.
	got := Split(text, 23)
	if len(got) != 1 {
		t.Fatalf("Split() = %q, want a single chunk", got)
	}
}

func TestSplit_InvariantsOnStatementLikeText(t *testing.T) {
	var b strings.Builder
	for p := 1; p <= 3; p++ {
		fmt.Fprintf(&b, "\n--- PAGE %d ---\n", p)
		for i := 0; i < 40; i++ {
			fmt.Fprintf(&b, "07/%02d AMAZON MKTPLACE PMTS AMZN.COM/BILL WA %d.99\n", i%28+1, i)
			if i%7 == 0 {
				b.WriteString("\n")
			}
		}
	}
	text := b.String()

	for _, size := range []int{80, 300, 1000, 3000, 100000} {
		t.Run(fmt.Sprintf("max=%d", size), func(t *testing.T) {
			assertInvariants(t, text, Split(text, size), size)
		})
	}
}

func TestSplit_Unbounded(t *testing.T) {
	text := "a\n\nb\n\nc"
	got := Split(text, 0)
	if len(got) != 1 || got[0] != text {
		t.Errorf("Split(_, 0) = %q, want single chunk", got)
	}
}

func block(n int) string {
	return fmt.Sprintf("TRANSACTION_START\nDATE: 07/%02d/25\nAMOUNT: -%d.00\nSOURCE: DEBIT_CHECKING\nTRANSACTION_TYPE: EXPENSE\nDESCRIPTION: SHOP %d\nTRANSACTION_END", n%28+1, n, n)
}

func TestGroupRecords(t *testing.T) {
	var blocks []string
	for i := 0; i < 60; i++ {
		blocks = append(blocks, block(i))
	}
	text := strings.Join(blocks, "\n\n")

	groups := GroupRecords(text, "TRANSACTION_START", 25)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}

	counts := []int{25, 25, 10}
	for i, g := range groups {
		if n := strings.Count(g, "TRANSACTION_START"); n != counts[i] {
			t.Errorf("group %d has %d blocks, want %d", i, n, counts[i])
		}
		if !strings.HasPrefix(g, "TRANSACTION_START") {
			t.Errorf("group %d does not start with the delimiter", i)
		}
	}
}

func TestGroupRecords_Idempotent(t *testing.T) {
	text := "preamble line\n" + block(1) + "\n" + block(2) + "\n\n\n" + block(3) + "\ntrailing noise"

	original := Records(text, "TRANSACTION_START")
	groups := GroupRecords(text, "TRANSACTION_START", 2)
	regrouped := Records(strings.Join(groups, "\n\n"), "TRANSACTION_START")

	if !reflect.DeepEqual(original, regrouped) {
		t.Errorf("records changed after grouping\n got: %q\nwant: %q", regrouped, original)
	}
	if original[0] != "preamble line" {
		t.Errorf("leading text should be its own record, got %q", original[0])
	}
	if len(original) != 4 {
		t.Errorf("len(records) = %d, want 4", len(original))
	}
}

func TestGroupRecords_Edges(t *testing.T) {
	if got := GroupRecords("", "TRANSACTION_START", 25); len(got) != 0 {
		t.Errorf("empty text should yield no groups, got %q", got)
	}
	if got := GroupRecords("  \n ", "TRANSACTION_START", 25); len(got) != 0 {
		t.Errorf("blank text should yield no groups, got %q", got)
	}
	if got := GroupRecords("no delimiters here", "TRANSACTION_START", 25); len(got) != 1 || got[0] != "no delimiters here" {
		t.Errorf("text without delimiter should be one group, got %q", got)
	}
	all := GroupRecords(block(1)+block(2)+block(3), "TRANSACTION_START", 0)
	if len(all) != 1 {
		t.Errorf("perGroup <= 0 should produce one group, got %d", len(all))
	}
}
