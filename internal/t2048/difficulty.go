// Package t2048 implements the 2048 sliding-tile engine: move resolution,
// tile spawning, undo history and session persistence.
package t2048

import (
	"fmt"
	"math/bits"
	"math/rand"
)

// Difficulty selects the tile spawn policy.
type Difficulty string

const (
	DifficultyEasy Difficulty = "easy"
	DifficultyHard Difficulty = "hard"
)

// ParseDifficulty validates a difficulty name. The empty string is rejected.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyHard:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("t2048: unknown difficulty %q", s)
}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyHard
}

// Toggle returns the other difficulty.
func (d Difficulty) Toggle() Difficulty {
	if d == DifficultyHard {
		return DifficultyEasy
	}
	return DifficultyHard
}

// Spawn policy constants.
const (
	easyBonusThreshold = 128 // easy mode adds 16 to the candidates from here
	hardPoolThreshold  = 16  // hard mode switches to the weighted pool from here
	hardSpawn2Prob     = 0.9
	hardWeightBudget   = 200
)

var (
	easyCandidates      = []int{2, 4, 8}
	easyBonusCandidates = []int{2, 4, 8, 16}
)

// spawnValue picks the value of the next tile given the current maximum.
func spawnValue(rng *rand.Rand, d Difficulty, maxVal int) int {
	if d == DifficultyHard {
		return hardSpawnValue(rng, maxVal)
	}

	candidates := easyCandidates
	if maxVal >= easyBonusThreshold {
		candidates = easyBonusCandidates
	}
	return candidates[rng.Intn(len(candidates))]
}

// hardSpawnValue draws from a pool where level i (value 2^i) appears
// max(1, 200/2^i) times, for levels up to two below the current maximum.
func hardSpawnValue(rng *rand.Rand, maxVal int) int {
	if maxVal < hardPoolThreshold {
		if rng.Float64() < hardSpawn2Prob {
			return 2
		}
		return 4
	}

	weights := hardLevelWeights(maxLevel(maxVal))
	total := 0
	for _, w := range weights {
		total += w
	}

	pick := rng.Intn(total)
	for i, w := range weights {
		if pick < w {
			return 1 << (i + 1)
		}
		pick -= w
	}
	// unreachable: pick < total
	return 2
}

// maxLevel returns log2(maxVal) - 2.
func maxLevel(maxVal int) int {
	return bits.Len(uint(maxVal)) - 1 - 2
}

// hardLevelWeights returns the pool weight of levels 1..top; index 0 is level 1.
func hardLevelWeights(top int) []int {
	weights := make([]int, 0, top)
	for level := 1; level <= top; level++ {
		w := hardWeightBudget >> level
		if w < 1 {
			w = 1
		}
		weights = append(weights, w)
	}
	return weights
}
