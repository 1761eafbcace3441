// Package player holds the rated identities of everyone who has ever
// logged in during the life of the process, and the Elo rule that updates
// ratings when a game is decided.
package player

import (
	"math"
	"sync"
)

// InitialRating is assigned to every newly created player.
const InitialRating = 1500

// Outcome is the result of a game from player1's perspective.
type Outcome int

const (
	Draw Outcome = iota
	Player1Wins
	Player2Wins
)

// Player is a named, rated identity. Names are immutable; ratings change
// only through PostResult.
type Player struct {
	name string

	mu     sync.Mutex
	rating int
}

// New creates a player with the initial rating.
func New(name string) *Player {
	return &Player{name: name, rating: InitialRating}
}

// Name returns the player's username.
func (p *Player) Name() string {
	return p.name
}

// Rating returns the player's current rating.
func (p *Player) Rating() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rating
}

// PostResult applies the Elo update (K=32, divisor 400) to both players
// atomically: no reader can observe one side updated and the other not.
// The two locks are taken in name order, which is a total order because
// player names are unique.
func PostResult(p1, p2 *Player, outcome Outcome) {
	first, second := p1, p2
	if second.name < first.name {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	var s1, s2 float64
	switch outcome {
	case Player1Wins:
		s1, s2 = 1, 0
	case Player2Wins:
		s1, s2 = 0, 1
	default:
		s1, s2 = 0.5, 0.5
	}

	r1 := float64(p1.rating)
	r2 := float64(p2.rating)
	e1 := 1 / (1 + math.Pow(10, (r2-r1)/400))
	e2 := 1 / (1 + math.Pow(10, (r1-r2)/400))

	p1.rating = int(math.Round(r1 + 32*(s1-e1)))
	p2.rating = int(math.Round(r2 + 32*(s2-e2)))
}
