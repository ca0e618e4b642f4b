// Package fetcher retrieves and decodes WMS imagery. It turns tiles into
// GetMap URLs through the URL builder and performs the HTTP round trip.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/geo"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/wms"
)

// ImageData holds a decoded tile image as RGBA pixels.
type ImageData struct {
	Buf    []byte
	Width  int
	Height int
	Depth  int // channels: 3=RGB source, 4=RGBA source
}

// HTTPError reports a non-200 response from the WMS server.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Status)
}

// Fetcher downloads and decodes WMS tiles.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       *logrus.Logger
}

// New creates a fetcher with a 30 second request timeout.
func New(userAgent string, log *logrus.Logger) *Fetcher {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: userAgent,
		log:       log,
	}
}

// FetchTile builds the GetMap URL for the tile and returns the decoded
// image.
func (f *Fetcher) FetchTile(ctx context.Context, builder *wms.GetMapURLBuilder, tile *geo.Tile, imageFormat string) (*ImageData, error) {
	url, err := builder.BuildURL(tile, imageFormat)
	if err != nil {
		return nil, err
	}

	f.log.Debugf("fetching tile row=%d col=%d: %s", tile.Row, tile.Column, url)

	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return img, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}

// DecodeImage sniffs the image format from its magic bytes and decodes it
// into RGBA pixel data. WMS servers commonly answer a GetMap with an XML
// service exception and a 200 status, which surfaces here as an
// unrecognized format.
func DecodeImage(data []byte) (*ImageData, error) {
	var img image.Image
	var depth int
	var err error

	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}):
		img, err = png.Decode(bytes.NewReader(data))
		depth = 4
	case len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xD8}):
		img, err = jpeg.Decode(bytes.NewReader(data))
		depth = 3
	default:
		return nil, fmt.Errorf("unrecognized image format")
	}
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	buf := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := (y*width + x) * 4
			buf[idx] = byte(r >> 8)
			buf[idx+1] = byte(g >> 8)
			buf[idx+2] = byte(b >> 8)
			if depth == 3 {
				buf[idx+3] = 255
			} else {
				buf[idx+3] = byte(a >> 8)
			}
		}
	}

	return &ImageData{
		Buf:    buf,
		Width:  width,
		Height: height,
		Depth:  depth,
	}, nil
}
