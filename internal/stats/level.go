package stats

import "math"

const (
	MaxLevel = 50

	levelBaseMinutes = 150
	levelGrowth      = 1.4
)

type LevelInfo struct {
	Level    int     `json:"level"`
	Current  int     `json:"current"`
	Needed   int     `json:"needed"`
	Progress float64 `json:"progress"`
}

// Level maps cumulative focus minutes onto a compounding curve: level L needs
// round(150 * 1.4^(L-1)) minutes beyond everything required before it.
func Level(totalFocusMinutes int) LevelInfo {
	total := max(totalFocusMinutes, 0)

	requirement := 0
	for level := 1; level <= MaxLevel; level++ {
		needed := minutesForLevel(level)
		if total < requirement+needed {
			current := total - requirement
			return LevelInfo{
				Level:    level,
				Current:  current,
				Needed:   needed,
				Progress: float64(current) / float64(needed),
			}
		}
		requirement += needed
	}
	return LevelInfo{Level: MaxLevel, Progress: 1}
}

func minutesForLevel(level int) int {
	return int(math.Round(levelBaseMinutes * math.Pow(levelGrowth, float64(level-1))))
}
