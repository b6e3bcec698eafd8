package retrieval_test

import (
	"math"
	"testing"

	"github.com/lxp-platform/fabric/worker/internal/retrieval"
)

func TestHashEmbed_IsDeterministic(t *testing.T) {
	a := retrieval.HashEmbed("예산은 얼마까지 가능하신가요?", 64)
	b := retrieval.HashEmbed("예산은 얼마까지 가능하신가요?", 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical embeddings for identical input, diverged at index %d", i)
		}
	}
}

func TestHashEmbed_IsL2Normalized(t *testing.T) {
	v := retrieval.HashEmbed("this is a reasonably long piece of text to embed", 32)
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if math.Abs(norm-1.0) > 1e-6 {
		t.Errorf("expected unit-norm vector, got norm %f", norm)
	}
}

func TestHashEmbed_EmptyTextIsZeroVector(t *testing.T) {
	v := retrieval.HashEmbed("", 16)
	for i, x := range v {
		if x != 0 {
			t.Fatalf("expected an all-zero vector for empty input, got nonzero at %d", i)
		}
	}
}

func TestHashEmbed_DifferentTextDiffers(t *testing.T) {
	a := retrieval.HashEmbed("가격이 너무 비싸요", 64)
	b := retrieval.HashEmbed("배송은 언제 되나요", 64)
	identical := true
	for i := range a {
		if a[i] != b[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Error("expected different text to produce different embeddings")
	}
}
