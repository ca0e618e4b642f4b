package geo

import (
	"math"
	"testing"
)

func TestNewSector_Validation(t *testing.T) {
	if _, err := NewSector(20, 30, 10, 40); err == nil {
		t.Errorf("Expected error for inverted latitudes")
	}
	if _, err := NewSector(10, 40, 20, 30); err == nil {
		t.Errorf("Expected error for inverted longitudes")
	}
	if _, err := NewSector(10, 30, 20, 40); err != nil {
		t.Errorf("Unexpected error for valid sector: %v", err)
	}
}

func TestSector_Bound_RoundTrip(t *testing.T) {
	s := Sector{MinLatitude: 10, MinLongitude: 30, MaxLatitude: 20, MaxLongitude: 40}
	got := SectorFromBound(s.Bound())
	if got != s {
		t.Errorf("Bound round trip changed sector: %+v != %+v", got, s)
	}
}

func TestSector_Intersects(t *testing.T) {
	s := Sector{MinLatitude: 10, MinLongitude: 30, MaxLatitude: 20, MaxLongitude: 40}

	if !s.Intersects(Sector{MinLatitude: 15, MinLongitude: 35, MaxLatitude: 25, MaxLongitude: 45}) {
		t.Errorf("Expected overlapping sectors to intersect")
	}
	if s.Intersects(Sector{MinLatitude: 50, MinLongitude: 50, MaxLatitude: 60, MaxLongitude: 60}) {
		t.Errorf("Expected disjoint sectors not to intersect")
	}
}

func TestNewLevelSet(t *testing.T) {
	ls, err := NewLevelSet(FullSphere, 90, 3, 256, 256)
	if err != nil {
		t.Fatalf("Failed to create level set: %v", err)
	}

	if ls.NumLevels() != 3 {
		t.Fatalf("Expected 3 levels, got %d", ls.NumLevels())
	}

	wantDeltas := []float64{90, 45, 22.5}
	for i, want := range wantDeltas {
		level := ls.Level(i)
		if level == nil {
			t.Fatalf("Level %d missing", i)
		}
		if level.TileDelta != want {
			t.Errorf("Level %d delta = %v, want %v", i, level.TileDelta, want)
		}
	}

	if ls.Level(-1) != nil || ls.Level(3) != nil {
		t.Errorf("Out-of-range level lookups should return nil")
	}
	if ls.LastLevel().Number != 2 {
		t.Errorf("Expected last level 2, got %d", ls.LastLevel().Number)
	}
}

func TestNewLevelSet_Validation(t *testing.T) {
	empty := Sector{}
	if _, err := NewLevelSet(empty, 90, 3, 256, 256); err == nil {
		t.Errorf("Expected error for empty sector")
	}
	if _, err := NewLevelSet(FullSphere, 0, 3, 256, 256); err == nil {
		t.Errorf("Expected error for zero delta")
	}
	if _, err := NewLevelSet(FullSphere, 90, 0, 256, 256); err == nil {
		t.Errorf("Expected error for zero levels")
	}
	if _, err := NewLevelSet(FullSphere, 90, 3, 0, 256); err == nil {
		t.Errorf("Expected error for zero tile width")
	}
}

func TestLevelSet_TileAddressing(t *testing.T) {
	ls, err := NewLevelSet(FullSphere, 90, 1, 256, 256)
	if err != nil {
		t.Fatalf("Failed to create level set: %v", err)
	}
	level := ls.Level(0)

	// Level 0 divides the globe into a 2x4 grid of 90 degree tiles.
	if got := ls.TileRow(level, -90); got != 0 {
		t.Errorf("TileRow(-90) = %d, want 0", got)
	}
	if got := ls.TileRow(level, 89.9); got != 1 {
		t.Errorf("TileRow(89.9) = %d, want 1", got)
	}
	if got := ls.TileRow(level, 90); got != 1 {
		t.Errorf("TileRow(90) should clamp to 1, got %d", got)
	}
	if got := ls.TileColumn(level, -180); got != 0 {
		t.Errorf("TileColumn(-180) = %d, want 0", got)
	}
	if got := ls.TileColumn(level, 179.9); got != 3 {
		t.Errorf("TileColumn(179.9) = %d, want 3", got)
	}

	tile := ls.NewTile(level, 1, 2)
	want := Sector{MinLatitude: 0, MinLongitude: 0, MaxLatitude: 90, MaxLongitude: 90}
	if tile.Sector != want {
		t.Errorf("Tile sector = %+v, want %+v", tile.Sector, want)
	}
}

func TestLevelSet_TilesForSector(t *testing.T) {
	ls, err := NewLevelSet(FullSphere, 90, 2, 256, 256)
	if err != nil {
		t.Fatalf("Failed to create level set: %v", err)
	}

	// A sector inside one level 0 tile.
	sector := Sector{MinLatitude: 10, MinLongitude: 30, MaxLatitude: 20, MaxLongitude: 40}
	tiles := ls.TilesForSector(ls.Level(0), sector)
	if len(tiles) != 1 {
		t.Fatalf("Expected 1 tile, got %d", len(tiles))
	}
	if tiles[0].Row != 1 || tiles[0].Column != 2 {
		t.Errorf("Expected tile row 1 col 2, got row %d col %d", tiles[0].Row, tiles[0].Column)
	}

	// A sector straddling the equator and prime meridian at level 1.
	sector = Sector{MinLatitude: -10, MinLongitude: -10, MaxLatitude: 10, MaxLongitude: 10}
	tiles = ls.TilesForSector(ls.Level(1), sector)
	if len(tiles) != 4 {
		t.Fatalf("Expected 4 tiles, got %d", len(tiles))
	}
	for _, tile := range tiles {
		if !tile.Sector.Intersects(sector) {
			t.Errorf("Tile %+v does not intersect the requested sector", tile.Sector)
		}
		if tile.Level.Number != 1 {
			t.Errorf("Expected level 1 tile, got %d", tile.Level.Number)
		}
	}

	if tiles := ls.TilesForSector(nil, sector); tiles != nil {
		t.Errorf("Expected nil tiles for nil level")
	}
}

func TestLevelSet_TileSpan_BoundaryAlignedSector(t *testing.T) {
	ls, err := NewLevelSet(FullSphere, 90, 2, 256, 256)
	if err != nil {
		t.Fatalf("Failed to create level set: %v", err)
	}
	level := ls.Level(1)

	// Both max edges sit exactly on 45 degree tile boundaries; the rows
	// and columns they merely touch must not be included.
	sector := Sector{MinLatitude: 0, MinLongitude: 0, MaxLatitude: 45, MaxLongitude: 45}

	firstRow, lastRow, firstCol, lastCol := ls.TileSpan(level, sector)
	if firstRow != 2 || lastRow != 2 {
		t.Errorf("Expected rows 2-2, got %d-%d", firstRow, lastRow)
	}
	if firstCol != 4 || lastCol != 4 {
		t.Errorf("Expected columns 4-4, got %d-%d", firstCol, lastCol)
	}

	tiles := ls.TilesForSector(level, sector)
	if len(tiles) != 1 {
		t.Fatalf("Expected 1 tile for a boundary-aligned sector, got %d", len(tiles))
	}
	if tiles[0].Sector != sector {
		t.Errorf("Tile sector = %+v, want %+v", tiles[0].Sector, sector)
	}

	// The full sphere covers every tile of the level and nothing more.
	firstRow, lastRow, firstCol, lastCol = ls.TileSpan(level, FullSphere)
	if firstRow != 0 || lastRow != 3 || firstCol != 0 || lastCol != 7 {
		t.Errorf("Expected full span 0-3 x 0-7, got %d-%d x %d-%d", firstRow, lastRow, firstCol, lastCol)
	}
}

func TestTileSectorsTileWithoutGaps(t *testing.T) {
	ls, err := NewLevelSet(FullSphere, 45, 1, 512, 512)
	if err != nil {
		t.Fatalf("Failed to create level set: %v", err)
	}
	level := ls.Level(0)

	a := ls.NewTile(level, 0, 0)
	b := ls.NewTile(level, 0, 1)

	if math.Abs(a.Sector.MaxLongitude-b.Sector.MinLongitude) > 1e-9 {
		t.Errorf("Adjacent tiles leave a gap: %v vs %v", a.Sector.MaxLongitude, b.Sector.MinLongitude)
	}
}
