package geo

import "fmt"

// Level describes one resolution level within a LevelSet. TileDelta is the
// number of degrees of latitude and longitude covered by a single tile at
// this level.
type Level struct {
	Number     int
	TileDelta  float64
	TileWidth  int
	TileHeight int
}

// LevelSet organizes a pyramid of levels over a sector, each level halving
// the tile delta of the one before it.
type LevelSet struct {
	Sector     Sector
	TileWidth  int
	TileHeight int
	Levels     []*Level
}

// NewLevelSet builds a level pyramid. firstLevelDelta is the tile delta of
// level 0 in degrees.
func NewLevelSet(sector Sector, firstLevelDelta float64, numLevels, tileWidth, tileHeight int) (*LevelSet, error) {
	if sector.IsEmpty() {
		return nil, fmt.Errorf("level set sector is empty")
	}
	if firstLevelDelta <= 0 {
		return nil, fmt.Errorf("first level delta %v must be positive", firstLevelDelta)
	}
	if numLevels < 1 {
		return nil, fmt.Errorf("number of levels %d must be at least 1", numLevels)
	}
	if tileWidth < 1 || tileHeight < 1 {
		return nil, fmt.Errorf("tile dimensions %dx%d must be positive", tileWidth, tileHeight)
	}

	ls := &LevelSet{
		Sector:     sector,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Levels:     make([]*Level, numLevels),
	}

	delta := firstLevelDelta
	for i := 0; i < numLevels; i++ {
		ls.Levels[i] = &Level{
			Number:     i,
			TileDelta:  delta,
			TileWidth:  tileWidth,
			TileHeight: tileHeight,
		}
		delta /= 2
	}

	return ls, nil
}

// Level returns the level with the given number, or nil if out of range.
func (ls *LevelSet) Level(number int) *Level {
	if number < 0 || number >= len(ls.Levels) {
		return nil
	}
	return ls.Levels[number]
}

// NumLevels returns the number of levels in the set.
func (ls *LevelSet) NumLevels() int {
	return len(ls.Levels)
}

// LastLevel returns the highest-resolution level.
func (ls *LevelSet) LastLevel() *Level {
	return ls.Levels[len(ls.Levels)-1]
}
