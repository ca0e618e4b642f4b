// Package stitcher assembles a composite map image for a sector by
// fetching the WMS tiles that cover it and pasting them onto one canvas.
package stitcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/OmarAlqahtani/WorldWindAndroid2/internal/fetcher"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/geo"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/wms"
)

// Options contains all parameters for one stitching run.
type Options struct {
	Builder     *wms.GetMapURLBuilder
	LevelSet    *geo.LevelSet
	LevelNumber int
	Sector      geo.Sector
	ImageFormat string
	UserAgent   string
}

// Result contains the stitched image and its geodetic footprint. Sector is
// the union of the fetched tile sectors, which may be larger than the
// requested sector.
type Result struct {
	ImageData []byte
	Width     int
	Height    int
	Sector    geo.Sector
}

// ErrImageTooLarge reports a request whose canvas would exceed the
// stitcher's size limit.
var ErrImageTooLarge = errors.New("requested image size too large")

const maxCanvasPixels = 10000 * 10000

// TileError aggregates tile download failures.
type TileError struct {
	Message         string
	FailedTiles     []FailedTile
	SuccessfulTiles int
	TotalTiles      int
}

func (e *TileError) Error() string {
	return e.Message
}

// FailedTile records a single failed tile fetch.
type FailedTile struct {
	URL   string
	Error string
}

// Stitcher fetches and composites WMS tiles.
type Stitcher struct {
	fetcher *fetcher.Fetcher
	log     *logrus.Logger
}

// New creates a stitcher. A nil logger discards output.
func New(userAgent string, log *logrus.Logger) *Stitcher {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Stitcher{
		fetcher: fetcher.New(userAgent, log),
		log:     log,
	}
}

// Stitch renders the sector at the chosen level and encodes the canvas as
// PNG.
func (s *Stitcher) Stitch(ctx context.Context, opts *Options) (*Result, error) {
	if opts.Builder == nil {
		return nil, fmt.Errorf("no URL builder provided")
	}
	if opts.LevelSet == nil {
		return nil, fmt.Errorf("no level set provided")
	}
	if opts.Sector.IsEmpty() {
		return nil, fmt.Errorf("requested sector is empty")
	}

	level := opts.LevelSet.Level(opts.LevelNumber)
	if level == nil {
		return nil, fmt.Errorf("level %d out of range (0-%d)", opts.LevelNumber, opts.LevelSet.NumLevels()-1)
	}

	imageFormat := opts.ImageFormat
	if imageFormat == "" {
		imageFormat = "image/png"
	}

	if !opts.LevelSet.Sector.Intersects(opts.Sector) {
		return nil, fmt.Errorf("sector does not intersect the level set")
	}

	// Size the canvas from the tile span alone and reject oversize
	// requests before TilesForSector materializes the tile slice; at
	// deep levels the enumeration itself can exhaust memory.
	firstRow, lastRow, firstCol, lastCol := opts.LevelSet.TileSpan(level, opts.Sector)
	width := (lastCol - firstCol + 1) * level.TileWidth
	height := (lastRow - firstRow + 1) * level.TileHeight
	if int64(width)*int64(height) > maxCanvasPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, width, height)
	}

	tiles := opts.LevelSet.TilesForSector(level, opts.Sector)
	if len(tiles) == 0 {
		return nil, fmt.Errorf("sector does not intersect the level set")
	}

	// Row 0 sits at the minimum latitude while image y grows downwards,
	// so rows are flipped when pasting.
	footprint := tiles[0].Sector
	for _, tile := range tiles[1:] {
		footprint = footprint.Union(tile.Sector)
	}

	s.log.Infof("stitching %d tiles into %dx%d canvas", len(tiles), width, height)

	buf := make([]byte, width*height*4)

	var failed []FailedTile
	successful := 0

	for _, tile := range tiles {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := s.fetcher.FetchTile(ctx, opts.Builder, tile, imageFormat)
		if err != nil {
			url, _ := opts.Builder.BuildURL(tile, imageFormat)
			s.log.Warnf("tile row=%d col=%d failed: %v", tile.Row, tile.Column, err)
			failed = append(failed, FailedTile{URL: url, Error: err.Error()})
			continue
		}

		if img.Width != level.TileWidth || img.Height != level.TileHeight {
			url, _ := opts.Builder.BuildURL(tile, imageFormat)
			failed = append(failed, FailedTile{
				URL: url,
				Error: fmt.Sprintf("wrong tile size: got %dx%d, expected %dx%d",
					img.Width, img.Height, level.TileWidth, level.TileHeight),
			})
			continue
		}

		xoff := (tile.Column - firstCol) * level.TileWidth
		yoff := (lastRow - tile.Row) * level.TileHeight
		pasteTile(img, buf, xoff, yoff, width, height)
		successful++
	}

	if successful == 0 {
		return nil, &TileError{
			Message:         "no tiles could be fetched",
			FailedTiles:     failed,
			SuccessfulTiles: successful,
			TotalTiles:      len(tiles),
		}
	}
	if len(failed) > len(tiles)/2 {
		return nil, &TileError{
			Message:         fmt.Sprintf("too many tile failures: %d/%d failed", len(failed), len(tiles)),
			FailedTiles:     failed,
			SuccessfulTiles: successful,
			TotalTiles:      len(tiles),
		}
	}

	imageData, err := encodePNG(buf, width, height)
	if err != nil {
		return nil, fmt.Errorf("encoding output image: %w", err)
	}

	return &Result{
		ImageData: imageData,
		Width:     width,
		Height:    height,
		Sector:    footprint,
	}, nil
}

// pasteTile copies tile pixels onto the canvas, alpha compositing RGBA
// sources over whatever is already there.
func pasteTile(img *fetcher.ImageData, buf []byte, xoff, yoff, width, height int) {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			xd := x + xoff
			yd := y + yoff
			if xd < 0 || yd < 0 || xd >= width || yd >= height {
				continue
			}

			srcIdx := (y*img.Width + x) * 4
			dstIdx := (yd*width + xd) * 4

			if img.Depth == 4 {
				src := [4]byte{img.Buf[srcIdx], img.Buf[srcIdx+1], img.Buf[srcIdx+2], img.Buf[srcIdx+3]}
				dst := [4]byte{buf[dstIdx], buf[dstIdx+1], buf[dstIdx+2], buf[dstIdx+3]}
				blended := alphaBlend(src, dst)
				copy(buf[dstIdx:dstIdx+4], blended[:])
			} else {
				buf[dstIdx] = img.Buf[srcIdx]
				buf[dstIdx+1] = img.Buf[srcIdx+1]
				buf[dstIdx+2] = img.Buf[srcIdx+2]
				buf[dstIdx+3] = 255
			}
		}
	}
}

// alphaBlend composites src over dst.
func alphaBlend(src, dst [4]byte) [4]byte {
	as := float64(src[3]) / 255.0
	rs := float64(src[0]) / 255.0 * as
	gs := float64(src[1]) / 255.0 * as
	bs := float64(src[2]) / 255.0 * as

	ad := float64(dst[3]) / 255.0
	rd := float64(dst[0]) / 255.0 * ad
	gd := float64(dst[1]) / 255.0 * ad
	bd := float64(dst[2]) / 255.0 * ad

	ar := as*(1-ad) + ad
	rr := rs*(1-ad) + rd
	gr := gs*(1-ad) + gd
	br := bs*(1-ad) + bd

	if ar > 0 {
		return [4]byte{
			byte(rr / ar * 255.0),
			byte(gr / ar * 255.0),
			byte(br / ar * 255.0),
			byte(ar * 255.0),
		}
	}
	return [4]byte{0, 0, 0, 0}
}

func encodePNG(buf []byte, width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, buf)

	var output bytes.Buffer
	if err := png.Encode(&output, img); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}
