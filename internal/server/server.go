// Package server exposes the URL builder and stitcher over an HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/OmarAlqahtani/WorldWindAndroid2/internal/stitcher"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/geo"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/wms"
)

// ServiceConfig is the JSON shape of the WMS service parameters shared by
// the url and map endpoints.
type ServiceConfig struct {
	Address          string `json:"address"`
	Version          string `json:"version,omitempty"`
	Layers           string `json:"layers"`
	Styles           string `json:"styles,omitempty"`
	CoordinateSystem string `json:"coordinate_system,omitempty"`
	Transparent      *bool  `json:"transparent,omitempty"`
	Time             string `json:"time,omitempty"`
}

// BoundingBox is a geographic extent in degrees.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// URLRequest asks for the GetMap URL of a single tile.
type URLRequest struct {
	Service ServiceConfig `json:"service"`
	BBox    BoundingBox   `json:"bbox"`
	Width   int           `json:"width,omitempty"`
	Height  int           `json:"height,omitempty"`
	Format  string        `json:"format,omitempty"`
}

// URLResponse carries the built URL.
type URLResponse struct {
	URL string `json:"url"`
}

// MapRequest asks for a stitched map image.
type MapRequest struct {
	Service ServiceConfig `json:"service"`
	BBox    BoundingBox   `json:"bbox"`
	Level   int           `json:"level"`
	Format  string        `json:"format,omitempty"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    int       `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server holds the API handlers.
type Server struct {
	startTime time.Time
	version   string
	userAgent string
	log       *logrus.Logger
}

// New creates the API server. A nil logger discards output.
func New(version string, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Server{
		startTime: time.Now(),
		version:   version,
		userAgent: "wmsmap/" + version,
		log:       log,
	}
}

// Routes returns the API router, to be mounted under /api/v1.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Post("/url", s.CreateURL)
	r.Post("/map", s.CreateMap)
	return r
}

// GetHealth implements the health check endpoint.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Errorf("encoding health response: %v", err)
	}
}

// CreateURL builds and returns the GetMap URL for one tile without touching
// the network.
func (s *Server) CreateURL(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON in request body")
		return
	}

	builder, err := s.newBuilder(req.Service)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_SERVICE", err.Error())
		return
	}

	sector, err := sectorFromBBox(req.BBox)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BBOX", err.Error())
		return
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = 256
	}
	if height == 0 {
		height = 256
	}
	if width < 1 || height < 1 {
		s.writeError(w, http.StatusBadRequest, "INVALID_SIZE", "width and height must be positive")
		return
	}

	format := req.Format
	if format == "" {
		format = "image/png"
	}

	tile := &geo.Tile{
		Sector: sector,
		Level:  &geo.Level{TileDelta: sector.DeltaLatitude(), TileWidth: width, TileHeight: height},
	}

	url, err := builder.BuildURL(tile, format)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(URLResponse{URL: url})
}

// CreateMap stitches a map image for the requested sector and streams it
// back as PNG.
func (s *Server) CreateMap(w http.ResponseWriter, r *http.Request) {
	var req MapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON in request body")
		return
	}

	builder, err := s.newBuilder(req.Service)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_SERVICE", err.Error())
		return
	}

	sector, err := sectorFromBBox(req.BBox)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BBOX", err.Error())
		return
	}

	if req.Level < 0 || req.Level > 20 {
		s.writeError(w, http.StatusBadRequest, "INVALID_LEVEL", "level must be between 0 and 20")
		return
	}

	levelSet, err := geo.NewLevelSet(geo.FullSphere, 90, req.Level+1, 256, 256)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	st := stitcher.New(s.userAgent, s.log)
	result, err := st.Stitch(r.Context(), &stitcher.Options{
		Builder:     builder,
		LevelSet:    levelSet,
		LevelNumber: req.Level,
		Sector:      sector,
		ImageFormat: req.Format,
	})
	if err != nil {
		s.handleStitchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.ImageData)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.ImageData); err != nil {
		s.log.Errorf("writing map response: %v", err)
	}
}

func (s *Server) newBuilder(svc ServiceConfig) (*wms.GetMapURLBuilder, error) {
	config := wms.NewLayerConfig(svc.Address, svc.Layers)
	if svc.Version != "" {
		config.WmsVersion = svc.Version
	}
	if svc.CoordinateSystem != "" {
		config.CoordinateSystem = svc.CoordinateSystem
	}
	if svc.Transparent != nil {
		config.Transparent = *svc.Transparent
	}
	config.StyleNames = svc.Styles
	config.TimeString = svc.Time

	return wms.NewGetMapURLBuilderFromConfig(config)
}

func sectorFromBBox(bbox BoundingBox) (geo.Sector, error) {
	if bbox.MinLat >= bbox.MaxLat {
		return geo.Sector{}, fmt.Errorf("min_lat must be less than max_lat")
	}
	if bbox.MinLon >= bbox.MaxLon {
		return geo.Sector{}, fmt.Errorf("min_lon must be less than max_lon")
	}
	return geo.NewSector(bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
}

func (s *Server) handleStitchError(w http.ResponseWriter, err error) {
	var tileErr *stitcher.TileError
	if errors.As(err, &tileErr) {
		s.writeError(w, http.StatusBadGateway, "TILE_SERVER_ERROR",
			fmt.Sprintf("%s (%d/%d tiles succeeded)", tileErr.Message, tileErr.SuccessfulTiles, tileErr.TotalTiles))
		return
	}
	if errors.Is(err, stitcher.ErrImageTooLarge) {
		s.writeError(w, http.StatusBadRequest, "IMAGE_TOO_LARGE", err.Error())
		return
	}
	if errors.Is(err, wms.ErrInvalidConfiguration) || errors.Is(err, wms.ErrInvalidArgument) {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	s.log.Errorf("stitching failed: %v", err)
	s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errorCode, Message: message})
}
