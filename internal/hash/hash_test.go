package hash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSumBytesDeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	first := SumBytes(data)
	second := SumBytes(data)

	if first != second {
		t.Errorf("Expected identical digests for identical input, got %s and %s", first, second)
	}
}

func TestSumBytesKnownValue(t *testing.T) {
	// SHA-256("hello world"), base64 std encoding.
	got := SumBytes([]byte("hello world"))
	want := "uU0nuZNNPgilLlLX2n2r+sSE7+N6U4DukIj3rOLvzek="

	if got != want {
		t.Errorf("Expected digest %s, got %s", want, got)
	}
}

func TestSumBytesSingleByteChange(t *testing.T) {
	a := SumBytes([]byte("feedback sample A"))
	b := SumBytes([]byte("feedback sample B"))

	if a == b {
		t.Error("Expected different digests for different inputs")
	}
}

func TestSumStreamingMatchesBuffered(t *testing.T) {
	// Larger than one chunk so streaming crosses boundaries.
	data := bytes.Repeat([]byte("audio-bytes-"), 1000)

	streamed, err := Sum(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Sum returned error: %v", err)
	}

	if buffered := SumBytes(data); streamed != buffered {
		t.Errorf("Streamed digest %s differs from buffered digest %s", streamed, buffered)
	}
}

func TestSumStringMatchesBytes(t *testing.T) {
	s := "hello world"
	if SumString(s) != SumBytes([]byte(s)) {
		t.Error("SumString and SumBytes disagree on identical content")
	}
}

func TestSumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3")
	content := strings.Repeat("mp3-frame", 500)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	got, err := SumFile(path)
	if err != nil {
		t.Fatalf("SumFile returned error: %v", err)
	}

	if want := SumString(content); got != want {
		t.Errorf("Expected digest %s, got %s", want, got)
	}
}

func TestSumFileMissing(t *testing.T) {
	if _, err := SumFile(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}
