package entity

import "math"

// XPPerLevel scales the square-root level curve.
const XPPerLevel = 1000

// LevelForXP maps an experience total to a player level starting at 1.
func LevelForXP(xp int64) int64 {
	if xp < XPPerLevel {
		return 1
	}
	return int64(math.Floor(math.Sqrt(float64(xp)/XPPerLevel))) + 1
}
