package player

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewPlayer(t *testing.T) {
	p := New("alice")
	if p.Name() != "alice" {
		t.Errorf("Name() = %q, want %q", p.Name(), "alice")
	}
	if p.Rating() != InitialRating {
		t.Errorf("Rating() = %d, want %d", p.Rating(), InitialRating)
	}
}

func TestPostResultEqualRatings(t *testing.T) {
	// At equal ratings the expected score is exactly 0.5, so the winner
	// gains exactly 16 and the loser gives up exactly 16.
	alice := New("alice")
	bob := New("bob")

	PostResult(bob, alice, Player1Wins)

	if got := bob.Rating(); got != 1516 {
		t.Errorf("winner rating = %d, want 1516", got)
	}
	if got := alice.Rating(); got != 1484 {
		t.Errorf("loser rating = %d, want 1484", got)
	}
}

func TestPostResultDraw(t *testing.T) {
	alice := New("alice")
	bob := New("bob")

	PostResult(alice, bob, Draw)

	if alice.Rating() != 1500 || bob.Rating() != 1500 {
		t.Errorf("draw at equal ratings moved them: %d, %d", alice.Rating(), bob.Rating())
	}
}

func TestPostResultSumInvariant(t *testing.T) {
	cases := []struct {
		r1, r2  int
		outcome Outcome
	}{
		{1500, 1500, Player1Wins},
		{1600, 1400, Player2Wins},
		{1750, 1503, Draw},
		{1484, 1516, Player1Wins},
		{2000, 1000, Player2Wins},
	}

	for _, tc := range cases {
		p1 := New("p1")
		p2 := New("p2")
		p1.rating = tc.r1
		p2.rating = tc.r2

		PostResult(p1, p2, tc.outcome)

		before := tc.r1 + tc.r2
		after := p1.Rating() + p2.Rating()
		if diff := after - before; diff < -1 || diff > 1 {
			t.Errorf("sum drifted by %d for %+v (after: %d+%d)", diff, tc, p1.Rating(), p2.Rating())
		}
	}
}

func TestPostResultUnderdogWin(t *testing.T) {
	strong := New("strong")
	weak := New("weak")
	strong.rating = 1700
	weak.rating = 1500

	PostResult(weak, strong, Player1Wins)

	// Underdog gains more than 16.
	if gain := weak.Rating() - 1500; gain <= 16 {
		t.Errorf("underdog gained %d, want > 16", gain)
	}
	if loss := 1700 - strong.Rating(); loss <= 16 {
		t.Errorf("favorite lost %d, want > 16", loss)
	}
}

func TestRegistryFindOrInsert(t *testing.T) {
	logger := zerolog.Nop()
	reg := NewRegistry(&logger)

	alice := reg.Register("alice")
	if alice == nil || alice.Name() != "alice" {
		t.Fatalf("Register returned %+v", alice)
	}

	again := reg.Register("alice")
	if again != alice {
		t.Error("re-registering a name returned a different player")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	bob := reg.Register("bob")
	if bob == alice {
		t.Error("distinct names share a player")
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

func TestRegistryRatingsPersistAcrossLogins(t *testing.T) {
	logger := zerolog.Nop()
	reg := NewRegistry(&logger)

	alice := reg.Register("alice")
	bob := reg.Register("bob")
	PostResult(alice, bob, Player1Wins)

	// A later login under the same name sees the updated rating.
	if got := reg.Register("alice").Rating(); got != 1516 {
		t.Errorf("rating after re-register = %d, want 1516", got)
	}
}

func TestRegistryConcurrentRegister(t *testing.T) {
	logger := zerolog.Nop()
	reg := NewRegistry(&logger)

	const goroutines = 16
	results := make([]*Player, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.Register("alice")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent registration created duplicate players")
		}
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}
