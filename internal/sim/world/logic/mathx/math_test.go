package mathx

import "testing"

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 1},
		{20, 16, 1},
		{-1, 16, -1},
		{-16, 16, -1},
		{-17, 16, -2},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.want {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestMod(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{0, 16, 0},
		{15, 16, 15},
		{16, 16, 0},
		{20, 16, 4},
		{-1, 16, 15},
		{-16, 16, 0},
		{-17, 16, 15},
	}
	for _, c := range cases {
		if got := Mod(c.a, c.b); got != c.want {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestFloorDivModConsistent(t *testing.T) {
	// a == FloorDiv(a,b)*b + Mod(a,b) must hold for any a.
	for a := -100; a <= 100; a++ {
		if got := FloorDiv(a, 16)*16 + Mod(a, 16); got != a {
			t.Fatalf("decompose %d: got %d", a, got)
		}
	}
}

func TestHash2Deterministic(t *testing.T) {
	if Hash2(42, 3, -7) != Hash2(42, 3, -7) {
		t.Fatalf("Hash2 not deterministic")
	}
	if Hash2(42, 3, -7) == Hash2(43, 3, -7) {
		t.Fatalf("Hash2 ignores seed")
	}
}
