package stitcher

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/geo"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/wms"
)

const testTileSize = 8

func tilePNG(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, testTileSize, testTileSize))
	for y := 0; y < testTileSize; y++ {
		for x := 0; x < testTileSize; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func testLevelSet(t *testing.T) *geo.LevelSet {
	t.Helper()

	ls, err := geo.NewLevelSet(geo.FullSphere, 90, 2, testTileSize, testTileSize)
	if err != nil {
		t.Fatalf("Failed to create level set: %v", err)
	}
	return ls
}

func TestStitch(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		// The builder must be sending well-formed 1.3.0 GetMap requests.
		q := r.URL.RawQuery
		for _, want := range []string{"SERVICE=WMS", "VERSION=1.3.0", "REQUEST=GetMap", "CRS=EPSG:4326", "BBOX="} {
			if !strings.Contains(q, want) {
				t.Errorf("Request query missing %q: %s", want, q)
			}
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(tilePNG(t, color.RGBA{B: 255, A: 255}))
	}))
	defer server.Close()

	builder, err := wms.NewGetMapURLBuilder(server.URL+"/wms", "1.3.0", "world", "")
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	s := New("wmsmap-test", nil)
	result, err := s.Stitch(context.Background(), &Options{
		Builder:     builder,
		LevelSet:    testLevelSet(t),
		LevelNumber: 1,
		Sector:      geo.Sector{MinLatitude: -10, MinLongitude: -10, MaxLatitude: 10, MaxLongitude: 10},
	})
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}

	// Four 45 degree tiles around the origin at level 1.
	if got := atomic.LoadInt32(&requests); got != 4 {
		t.Errorf("Expected 4 tile requests, got %d", got)
	}
	if result.Width != 2*testTileSize || result.Height != 2*testTileSize {
		t.Errorf("Expected %dx%d canvas, got %dx%d", 2*testTileSize, 2*testTileSize, result.Width, result.Height)
	}

	decoded, err := png.Decode(bytes.NewReader(result.ImageData))
	if err != nil {
		t.Fatalf("Result is not a valid PNG: %v", err)
	}
	r, g, b, _ := decoded.At(0, 0).RGBA()
	if r>>8 != 0 || g>>8 != 0 || b>>8 != 255 {
		t.Errorf("Expected blue canvas, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}

	// The footprint covers whole tiles, so it is at least the request.
	if result.Sector.MinLatitude > -10 || result.Sector.MaxLatitude < 10 {
		t.Errorf("Footprint %+v does not cover the requested sector", result.Sector)
	}
}

func TestStitch_AllTilesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	builder, err := wms.NewGetMapURLBuilder(server.URL+"/wms", "1.3.0", "world", "")
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	s := New("wmsmap-test", nil)
	_, err = s.Stitch(context.Background(), &Options{
		Builder:     builder,
		LevelSet:    testLevelSet(t),
		LevelNumber: 0,
		Sector:      geo.Sector{MinLatitude: 10, MinLongitude: 30, MaxLatitude: 20, MaxLongitude: 40},
	})

	var tileErr *TileError
	if !errors.As(err, &tileErr) {
		t.Fatalf("Expected TileError, got %v", err)
	}
	if tileErr.SuccessfulTiles != 0 {
		t.Errorf("Expected 0 successful tiles, got %d", tileErr.SuccessfulTiles)
	}
	if len(tileErr.FailedTiles) != tileErr.TotalTiles {
		t.Errorf("Expected %d failures, got %d", tileErr.TotalTiles, len(tileErr.FailedTiles))
	}
}

func TestStitch_WrongTileSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		w.Header().Set("Content-Type", "image/png")
		png.Encode(w, img)
	}))
	defer server.Close()

	builder, err := wms.NewGetMapURLBuilder(server.URL+"/wms", "1.3.0", "world", "")
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	s := New("wmsmap-test", nil)
	_, err = s.Stitch(context.Background(), &Options{
		Builder:     builder,
		LevelSet:    testLevelSet(t),
		LevelNumber: 0,
		Sector:      geo.Sector{MinLatitude: 10, MinLongitude: 30, MaxLatitude: 20, MaxLongitude: 40},
	})

	var tileErr *TileError
	if !errors.As(err, &tileErr) {
		t.Fatalf("Expected TileError for undersized tiles, got %v", err)
	}
	for _, ft := range tileErr.FailedTiles {
		if ft.URL == "" {
			t.Errorf("Wrong-size failure is missing the tile URL: %+v", ft)
		}
	}
}

func TestStitch_OversizeRejectedBeforeFetch(t *testing.T) {
	// The builder points at a server that fails every request; an
	// oversize request must be rejected before any tile is enumerated
	// or fetched.
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	defer server.Close()

	builder, err := wms.NewGetMapURLBuilder(server.URL+"/wms", "1.3.0", "world", "")
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	ls, err := geo.NewLevelSet(geo.FullSphere, 90, 21, 256, 256)
	if err != nil {
		t.Fatalf("Failed to create level set: %v", err)
	}

	s := New("wmsmap-test", nil)
	_, err = s.Stitch(context.Background(), &Options{
		Builder:     builder,
		LevelSet:    ls,
		LevelNumber: 20,
		Sector:      geo.FullSphere,
	})

	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("Expected ErrImageTooLarge, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 0 {
		t.Errorf("Expected no tile requests for an oversize canvas, got %d", got)
	}
}

func TestStitch_Validation(t *testing.T) {
	builder, err := wms.NewGetMapURLBuilder("http://example.com/wms", "1.3.0", "world", "")
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}
	ls := testLevelSet(t)
	sector := geo.Sector{MinLatitude: 10, MinLongitude: 30, MaxLatitude: 20, MaxLongitude: 40}

	s := New("wmsmap-test", nil)

	if _, err := s.Stitch(context.Background(), &Options{LevelSet: ls, Sector: sector}); err == nil {
		t.Errorf("Expected error for missing builder")
	}
	if _, err := s.Stitch(context.Background(), &Options{Builder: builder, Sector: sector}); err == nil {
		t.Errorf("Expected error for missing level set")
	}
	if _, err := s.Stitch(context.Background(), &Options{Builder: builder, LevelSet: ls}); err == nil {
		t.Errorf("Expected error for empty sector")
	}
	if _, err := s.Stitch(context.Background(), &Options{Builder: builder, LevelSet: ls, LevelNumber: 99, Sector: sector}); err == nil {
		t.Errorf("Expected error for out-of-range level")
	}
}

func TestStitch_ContextCancelled(t *testing.T) {
	builder, err := wms.NewGetMapURLBuilder("http://example.com/wms", "1.3.0", "world", "")
	if err != nil {
		t.Fatalf("Failed to create builder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New("wmsmap-test", nil)
	_, err = s.Stitch(ctx, &Options{
		Builder:     builder,
		LevelSet:    testLevelSet(t),
		LevelNumber: 0,
		Sector:      geo.Sector{MinLatitude: 10, MinLongitude: 30, MaxLatitude: 20, MaxLongitude: 40},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
