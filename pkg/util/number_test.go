package util

import "testing"

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{66.666666, 66.67},
		{33.333333, 33.33},
		{-1.234, -1.23},
		{0, 0},
		{12.5, 12.5},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Fatalf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPctChange(t *testing.T) {
	if got := PctChange(11, 10); Round2(got) != 10 {
		t.Fatalf("unexpected pct %v", got)
	}
	if got := PctChange(5, 0); got != 0 {
		t.Fatalf("zero base should yield 0, got %v", got)
	}
}

func TestChunk(t *testing.T) {
	xs := []int{1, 2, 3, 4, 5}
	got := Chunk(xs, 2)
	if len(got) != 3 || len(got[2]) != 1 || got[2][0] != 5 {
		t.Fatalf("unexpected chunks %v", got)
	}
	if Chunk([]int{}, 3) != nil {
		t.Fatalf("empty input should yield nil")
	}
	if got := Chunk(xs, 0); len(got) != 1 || len(got[0]) != 5 {
		t.Fatalf("non-positive size should yield one chunk, got %v", got)
	}
}
