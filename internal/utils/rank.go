package utils

import "math"

// RankPositions numbers already sorted results from 1. Positions past
// what a uint16 holds share the last rank.
func RankPositions(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := range ranks {
		ranks[i] = uint16(min(i+1, math.MaxUint16))
	}
	return ranks
}
