package geo

import "math"

// Tile addresses one unit of renderable imagery: the sector it covers, the
// level it belongs to, and its row/column position within that level. Rows
// count up from the level set's minimum latitude, columns from its minimum
// longitude.
type Tile struct {
	Sector Sector
	Level  *Level
	Row    int
	Column int
}

// NewTile creates a tile for the given level, row and column within the
// level set's sector.
func (ls *LevelSet) NewTile(level *Level, row, column int) *Tile {
	delta := level.TileDelta
	minLat := ls.Sector.MinLatitude + float64(row)*delta
	minLon := ls.Sector.MinLongitude + float64(column)*delta

	return &Tile{
		Sector: Sector{
			MinLatitude:  minLat,
			MinLongitude: minLon,
			MaxLatitude:  minLat + delta,
			MaxLongitude: minLon + delta,
		},
		Level:  level,
		Row:    row,
		Column: column,
	}
}

// TileRow returns the row containing the given latitude at this level.
func (ls *LevelSet) TileRow(level *Level, latitude float64) int {
	row := int(math.Floor((latitude - ls.Sector.MinLatitude) / level.TileDelta))
	maxRow := ls.rowCount(level) - 1
	if row < 0 {
		row = 0
	} else if row > maxRow {
		row = maxRow
	}
	return row
}

// TileColumn returns the column containing the given longitude at this level.
func (ls *LevelSet) TileColumn(level *Level, longitude float64) int {
	col := int(math.Floor((longitude - ls.Sector.MinLongitude) / level.TileDelta))
	maxCol := ls.columnCount(level) - 1
	if col < 0 {
		col = 0
	} else if col > maxCol {
		col = maxCol
	}
	return col
}

// lastTileRow returns the last row covered by a sector ending at the
// given latitude. A latitude falling exactly on a tile boundary belongs
// to the row below it, not the row it only touches.
func (ls *LevelSet) lastTileRow(level *Level, latitude float64) int {
	row := int(math.Ceil((latitude-ls.Sector.MinLatitude)/level.TileDelta - 1))
	maxRow := ls.rowCount(level) - 1
	if row < 0 {
		row = 0
	} else if row > maxRow {
		row = maxRow
	}
	return row
}

// lastTileColumn returns the last column covered by a sector ending at
// the given longitude, excluding a column the edge only touches.
func (ls *LevelSet) lastTileColumn(level *Level, longitude float64) int {
	col := int(math.Ceil((longitude-ls.Sector.MinLongitude)/level.TileDelta - 1))
	maxCol := ls.columnCount(level) - 1
	if col < 0 {
		col = 0
	} else if col > maxCol {
		col = maxCol
	}
	return col
}

func (ls *LevelSet) rowCount(level *Level) int {
	return int(math.Ceil(ls.Sector.DeltaLatitude() / level.TileDelta))
}

func (ls *LevelSet) columnCount(level *Level) int {
	return int(math.Ceil(ls.Sector.DeltaLongitude() / level.TileDelta))
}

// TileSpan returns the inclusive row and column ranges of the level's
// tiles covering the sector. The span is pure arithmetic on the sector
// edges; callers can size a canvas from it without materializing any
// tiles.
func (ls *LevelSet) TileSpan(level *Level, sector Sector) (firstRow, lastRow, firstCol, lastCol int) {
	firstRow = ls.TileRow(level, sector.MinLatitude)
	lastRow = ls.lastTileRow(level, sector.MaxLatitude)
	firstCol = ls.TileColumn(level, sector.MinLongitude)
	lastCol = ls.lastTileColumn(level, sector.MaxLongitude)
	return firstRow, lastRow, firstCol, lastCol
}

// TilesForSector enumerates the tiles of a level that intersect the given
// sector, in row-major order from south-west to north-east.
func (ls *LevelSet) TilesForSector(level *Level, sector Sector) []*Tile {
	if level == nil || !ls.Sector.Intersects(sector) {
		return nil
	}

	firstRow, lastRow, firstCol, lastCol := ls.TileSpan(level, sector)

	tiles := make([]*Tile, 0, (lastRow-firstRow+1)*(lastCol-firstCol+1))
	for row := firstRow; row <= lastRow; row++ {
		for col := firstCol; col <= lastCol; col++ {
			tiles = append(tiles, ls.NewTile(level, row, col))
		}
	}
	return tiles
}
