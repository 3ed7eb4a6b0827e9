package db

import "testing"

func TestChunkSplitsAtLimit(t *testing.T) {
	ids := make([]string, 1201)
	for i := range ids {
		ids[i] = "x"
	}
	chunks := Chunk(ids, MaxBatchOps)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 500 || len(chunks[1]) != 500 || len(chunks[2]) != 201 {
		t.Fatalf("unexpected chunk sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

func TestChunkEmpty(t *testing.T) {
	if got := Chunk([]string(nil), 500); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestChunkDefaultsSize(t *testing.T) {
	ids := make([]int, 501)
	chunks := Chunk(ids, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks with default size, got %d", len(chunks))
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Placeholders(3); got != "?, ?, ?" {
		t.Fatalf("unexpected placeholders: %q", got)
	}
	if got := Placeholders(0); got != "" {
		t.Fatalf("expected empty string for n=0, got %q", got)
	}
}
