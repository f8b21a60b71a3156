package domain

import "testing"

func TestRoundRobin_Cycles(t *testing.T) {
	s := NewRoundRobin()
	got := []int{s.Next(3), s.Next(3), s.Next(3), s.Next(3)}
	want := []int{0, 1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pick %d = %d; want %d", i, got[i], want[i])
		}
	}
}

func TestRandom_DeterministicWithSeed(t *testing.T) {
	a := NewRandom(7)
	b := NewRandom(7)
	for i := 0; i < 20; i++ {
		if x, y := a.Next(5), b.Next(5); x != y {
			t.Fatalf("pick %d diverged: %d vs %d", i, x, y)
		}
	}
}

func TestRandom_InBounds(t *testing.T) {
	s := NewRandom(1)
	for i := 0; i < 100; i++ {
		if got := s.Next(4); got < 0 || got > 3 {
			t.Fatalf("Next(4) = %d out of bounds", got)
		}
	}
}

func TestPool_Accessors(t *testing.T) {
	p := NewPool("mainnet", []string{"https://a.example", "https://b.example"})
	if p.Network() != "mainnet" || p.Size() != 2 {
		t.Fatalf("pool = %s/%d; want mainnet/2", p.Network(), p.Size())
	}
	if p.At(1).URL != "https://b.example" {
		t.Fatalf("At(1) = %s", p.At(1).URL)
	}
}
