package cowstr

import (
	"strings"
	"testing"
)

func TestBorrowedDoesNotCopy(t *testing.T) {
	v := Borrowed("ab")

	if v.IsOwned() {
		t.Fatal("expected borrowed value")
	}
	if !v.Equal("ab") {
		t.Fatalf("expected content 'ab', got %q", v.String())
	}
	if v.Copies() != 0 {
		t.Fatalf("expected 0 copies, got %d", v.Copies())
	}
	if v.CopiedBytes() != 0 {
		t.Fatalf("expected 0 copied bytes, got %d", v.CopiedBytes())
	}
}

func TestOwnedCopiesOnce(t *testing.T) {
	v := Owned("ab")

	if !v.IsOwned() {
		t.Fatal("expected owned value")
	}
	if !v.Equal("ab") {
		t.Fatalf("expected content 'ab', got %q", v.String())
	}
	if v.Copies() != 1 {
		t.Fatalf("expected 1 copy, got %d", v.Copies())
	}
	if v.CopiedBytes() != 2 {
		t.Fatalf("expected 2 copied bytes, got %d", v.CopiedBytes())
	}
}

func TestOwnedBufferIsIndependent(t *testing.T) {
	src := []byte("ab")
	v := Owned(string(src))
	src[0] = 'x'

	if !v.Equal("ab") {
		t.Fatalf("owned value changed with its source: %q", v.String())
	}
}

func TestMutateSharedOnTinyCorpus(t *testing.T) {
	v := Borrowed("ab")
	v.Append("ab")

	if !v.IsOwned() {
		t.Fatal("expected value to be owned after Append")
	}
	if !v.Equal("abab") {
		t.Fatalf("expected 'abab', got %q", v.String())
	}
	// promote + grow
	if v.Copies() != 2 {
		t.Fatalf("expected 2 copies, got %d", v.Copies())
	}
}

func TestPromote(t *testing.T) {
	v := Borrowed("hello")

	if !v.Promote() {
		t.Fatal("expected first Promote to copy")
	}
	if v.Promote() {
		t.Fatal("expected second Promote to be a no-op")
	}
	if v.Copies() != 1 {
		t.Fatalf("expected 1 copy, got %d", v.Copies())
	}

	o := Owned("hello")
	if o.Promote() {
		t.Fatal("expected Promote on owned value to be a no-op")
	}
}

func TestBytesMutatesInPlace(t *testing.T) {
	v := Borrowed("abc")
	b := v.Bytes()
	b[0] = 'x'

	if !v.Equal("xbc") {
		t.Fatalf("expected 'xbc', got %q", v.String())
	}
}

func TestStrategiesConvergeAfterAppend(t *testing.T) {
	want := Corpus + Corpus

	shared := Borrowed(Corpus)
	if !shared.Equal(Corpus) {
		t.Fatal("borrowed value does not match corpus before mutation")
	}
	shared.Promote()
	shared.Append(Corpus)

	owned := Owned(Corpus)
	if !owned.Equal(Corpus) {
		t.Fatal("owned value does not match corpus before mutation")
	}
	owned.Append(Corpus)

	if !shared.Equal(want) {
		t.Fatal("mutate-shared result is not corpus+corpus")
	}
	if !owned.Equal(want) {
		t.Fatal("mutate-owned result is not corpus+corpus")
	}
	if shared.Copies() != owned.Copies() {
		t.Fatalf("expected equal copy counts, got shared=%d owned=%d", shared.Copies(), owned.Copies())
	}
	if shared.CopiedBytes() != owned.CopiedBytes() {
		t.Fatalf("expected equal copied bytes, got shared=%d owned=%d", shared.CopiedBytes(), owned.CopiedBytes())
	}
}

func TestIntoOwned(t *testing.T) {
	v := Borrowed("ab")
	buf := v.IntoOwned()

	if string(buf) != "ab" {
		t.Fatalf("expected 'ab', got %q", buf)
	}
	if v.Copies() != 1 {
		t.Fatalf("expected 1 copy, got %d", v.Copies())
	}
}

func TestLen(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want int
	}{
		{"borrowed empty", Borrowed(""), 0},
		{"borrowed", Borrowed("abc"), 3},
		{"owned", Owned("abcd"), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppender(t *testing.T) {
	v := Owned("")
	push := Appender(&v, true)

	if !push("We got that, ") {
		t.Fatal("expected appender to return debug flag")
	}
	push("and that too as well")

	if !v.Equal("We got that, and that too as well") {
		t.Fatalf("unexpected content %q", v.String())
	}

	quiet := Appender(&v, false)
	if quiet("!") {
		t.Fatal("expected appender to return false")
	}
}

func TestCorpusIsLarge(t *testing.T) {
	if len(Corpus) < 1000 {
		t.Fatalf("corpus has %d bytes, want at least 1000", len(Corpus))
	}
	if !strings.Contains(Corpus, "Lorem ipsum") {
		t.Fatal("corpus does not contain the sample text")
	}
}
