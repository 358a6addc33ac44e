package compression

import (
	"strings"
	"testing"
	"time"
)

func TestCompressCodeStripsComments(t *testing.T) {
	code := "package foo\n\n// a comment\nfunc Bar() int {\n\treturn 1 // inline\n}\n"
	out := compressCode(code, 0.9)
	if strings.Contains(out, "a comment") || strings.Contains(out, "inline") {
		t.Errorf("expected comments stripped, got: %q", out)
	}
}

func TestCompressGenericRespectsRatio(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("This is sentence number filler. ")
	}
	text := b.String()
	out := compressGeneric(text, 0.3)
	if len(out) == 0 {
		t.Fatal("expected non-empty output")
	}
	if len(out) >= len(text) {
		t.Errorf("expected compression to shrink text: %d >= %d", len(out), len(text))
	}
}

func TestCompressResultMetadata(t *testing.T) {
	text := strings.Repeat("word ", 5000)
	res := Compress(text, TypeGeneric, 0.3)
	if res.OriginalSize != len(text) {
		t.Errorf("OriginalSize = %d, want %d", res.OriginalSize, len(text))
	}
	if res.CompressedSize != len(res.Text) {
		t.Errorf("CompressedSize mismatch")
	}
	if res.CompressionRatio <= 0 || res.CompressionRatio > 1.01 {
		t.Errorf("unexpected compression ratio %v", res.CompressionRatio)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("EstimateTokens(4 chars) = %d, want 1", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Errorf("EstimateTokens(5 chars) = %d, want 2", got)
	}
}

func TestHierarchicalRatio(t *testing.T) {
	thresholds := []AgeThreshold{{Age: 24 * time.Hour}, {Age: 7 * 24 * time.Hour}}
	r0 := HierarchicalRatio(0.5, time.Hour, thresholds)
	r1 := HierarchicalRatio(0.5, 2*24*time.Hour, thresholds)
	r2 := HierarchicalRatio(0.5, 30*24*time.Hour, thresholds)
	if r0 != 0.5 {
		t.Errorf("level 0 ratio = %v, want 0.5", r0)
	}
	if r1 >= r0 || r2 >= r1 {
		t.Errorf("expected ratio to shrink with age: %v, %v, %v", r0, r1, r2)
	}
}
