package retrieval

import "testing"

// TestFuseScenarioS4 reproduces spec §8 scenario S4 exactly.
func TestFuseScenarioS4(t *testing.T) {
	lexical := []RankedItem{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	semantic := []RankedItem{{Key: "b"}, {Key: "d"}, {Key: "a"}}

	fused := fuse(lexical, semantic, 60, 1.0, 1.0)
	top3 := []string{fused[0].Key, fused[1].Key, fused[2].Key}
	want := []string{"b", "a", "d"}
	for i := range want {
		if top3[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, top3)
		}
	}

	a := 1.0/61 + 1.0/63
	b := 1.0/62 + 1.0/61
	c := 1.0 / 63
	d := 1.0 / 62

	scores := map[string]float64{}
	for _, it := range fused {
		scores[it.Key] = it.Score
	}
	const eps = 1e-9
	check := func(key string, want float64) {
		if got := scores[key]; abs(got-want) > eps {
			t.Errorf("score[%s] = %v, want %v", key, got, want)
		}
	}
	check("a", a)
	check("b", b)
	check("c", c)
	check("d", d)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func TestFuseDeterministicTieBreak(t *testing.T) {
	lexical := []RankedItem{{Key: "z"}, {Key: "y"}}
	semantic := []RankedItem{{Key: "y"}, {Key: "z"}}

	first := fuse(lexical, semantic, 60, 1, 1)
	second := fuse(lexical, semantic, 60, 1, 1)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic output length")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("fuse is not deterministic: %v vs %v", first, second)
		}
	}
}

func TestFuseRRFMonotonicity(t *testing.T) {
	// Inserting k at rank 1 in one retriever, all else equal, must never
	// lower k's fused rank (spec §8 "RRF monotonicity" law).
	lexical := []RankedItem{{Key: "x"}, {Key: "k"}, {Key: "y"}}
	semantic := []RankedItem{{Key: "x"}, {Key: "y"}}

	before := fuse(lexical, semantic, 60, 1, 1)
	rankOf := func(items []RankedItem, key string) int {
		for i, it := range items {
			if it.Key == key {
				return i
			}
		}
		return -1
	}
	beforeRank := rankOf(before, "k")

	lexicalWithKFirst := []RankedItem{{Key: "k"}, {Key: "x"}, {Key: "y"}}
	after := fuse(lexicalWithKFirst, semantic, 60, 1, 1)
	afterRank := rankOf(after, "k")

	if afterRank > beforeRank {
		t.Fatalf("expected k's rank to not worsen when promoted to rank 1, before=%d after=%d", beforeRank, afterRank)
	}
}

func TestFuseEmptyRetrieverContributesNothing(t *testing.T) {
	lexical := []RankedItem{{Key: "a"}, {Key: "b"}}
	var semantic []RankedItem

	fused := fuse(lexical, semantic, 60, 1, 1)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused items, got %d", len(fused))
	}
	if fused[0].Key != "a" {
		t.Fatalf("expected rank-1 lexical item to win, got %s", fused[0].Key)
	}
}
