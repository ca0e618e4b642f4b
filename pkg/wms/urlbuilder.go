// Package wms builds request URLs for the OGC Web Map Service GetMap
// operation. The version and coordinate-system dependent behavior lives
// here; transport and image decoding are left to the caller.
package wms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/geo"
)

const version130 = "1.3.0"

// GetMapURLBuilder constructs GetMap request URLs for one WMS layer
// configuration. The zero value is not usable; use NewGetMapURLBuilder or
// NewGetMapURLBuilderFromConfig.
//
// The builder performs no internal locking. A builder mutated by one
// goroutine while another calls BuildURL may observe a torn configuration;
// callers needing concurrent use should give each goroutine its own builder.
type GetMapURLBuilder struct {
	serviceAddress   string
	wmsVersion       string
	layerNames       string
	styleNames       string
	coordinateSystem string
	transparent      bool
	timeString       string
}

// NewGetMapURLBuilder creates a builder with the required service
// parameters. styleNames may be empty, in which case the server default
// style is assumed. The coordinate system defaults to EPSG:4326 and
// transparency to true.
func NewGetMapURLBuilder(serviceAddress, wmsVersion, layerNames, styleNames string) (*GetMapURLBuilder, error) {
	if serviceAddress == "" {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilder missing service address", ErrInvalidConfiguration)
	}
	if wmsVersion == "" {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilder missing version", ErrInvalidConfiguration)
	}
	if layerNames == "" {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilder missing layer names", ErrInvalidConfiguration)
	}

	return &GetMapURLBuilder{
		serviceAddress:   serviceAddress,
		wmsVersion:       wmsVersion,
		layerNames:       layerNames,
		styleNames:       styleNames,
		coordinateSystem: "EPSG:4326",
		transparent:      true,
	}, nil
}

// NewGetMapURLBuilderFromConfig creates a builder from a layer config. The
// config's service address, version, layer names and coordinate system must
// be non-empty.
func NewGetMapURLBuilderFromConfig(config *LayerConfig) (*GetMapURLBuilder, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilderFromConfig missing config", ErrInvalidConfiguration)
	}
	if config.ServiceAddress == "" {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilderFromConfig missing service address", ErrInvalidConfiguration)
	}
	if config.WmsVersion == "" {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilderFromConfig missing version", ErrInvalidConfiguration)
	}
	if config.LayerNames == "" {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilderFromConfig missing layer names", ErrInvalidConfiguration)
	}
	if config.CoordinateSystem == "" {
		return nil, fmt.Errorf("%w: NewGetMapURLBuilderFromConfig missing coordinate system", ErrInvalidConfiguration)
	}

	return &GetMapURLBuilder{
		serviceAddress:   config.ServiceAddress,
		wmsVersion:       config.WmsVersion,
		layerNames:       config.LayerNames,
		styleNames:       config.StyleNames,
		coordinateSystem: config.CoordinateSystem,
		transparent:      config.Transparent,
		timeString:       config.TimeString,
	}, nil
}

// ServiceAddress returns the WMS service address.
func (b *GetMapURLBuilder) ServiceAddress() string { return b.serviceAddress }

// SetServiceAddress sets the WMS service address. The address may already
// carry a query string; it is preserved verbatim when URLs are built.
func (b *GetMapURLBuilder) SetServiceAddress(serviceAddress string) error {
	if serviceAddress == "" {
		return fmt.Errorf("%w: SetServiceAddress missing service address", ErrInvalidConfiguration)
	}
	b.serviceAddress = serviceAddress
	return nil
}

// WmsVersion returns the WMS protocol version.
func (b *GetMapURLBuilder) WmsVersion() string { return b.wmsVersion }

// SetWmsVersion sets the WMS protocol version. The version selects the
// CRS/SRS parameter name and the BBOX axis order.
func (b *GetMapURLBuilder) SetWmsVersion(wmsVersion string) error {
	if wmsVersion == "" {
		return fmt.Errorf("%w: SetWmsVersion missing version", ErrInvalidConfiguration)
	}
	b.wmsVersion = wmsVersion
	return nil
}

// LayerNames returns the comma-separated list of layer names.
func (b *GetMapURLBuilder) LayerNames() string { return b.layerNames }

// SetLayerNames sets the comma-separated list of layer names.
func (b *GetMapURLBuilder) SetLayerNames(layerNames string) error {
	if layerNames == "" {
		return fmt.Errorf("%w: SetLayerNames missing layer names", ErrInvalidConfiguration)
	}
	b.layerNames = layerNames
	return nil
}

// StyleNames returns the comma-separated list of style names, or the empty
// string when the server default style is assumed.
func (b *GetMapURLBuilder) StyleNames() string { return b.styleNames }

// SetStyleNames sets the comma-separated list of style names. An empty
// value selects the server default style.
func (b *GetMapURLBuilder) SetStyleNames(styleNames string) {
	b.styleNames = styleNames
}

// CoordinateSystem returns the coordinate reference system identifier.
func (b *GetMapURLBuilder) CoordinateSystem() string { return b.coordinateSystem }

// SetCoordinateSystem sets the coordinate reference system identifier. The
// identifier is passed through verbatim; for WMS 1.3.0 it also selects the
// BBOX axis order.
func (b *GetMapURLBuilder) SetCoordinateSystem(coordinateSystem string) error {
	if coordinateSystem == "" {
		return fmt.Errorf("%w: SetCoordinateSystem missing coordinate system", ErrInvalidConfiguration)
	}
	b.coordinateSystem = coordinateSystem
	return nil
}

// Transparent reports whether GetMap URLs request transparency.
func (b *GetMapURLBuilder) Transparent() bool { return b.transparent }

// SetTransparent sets whether GetMap URLs request transparency.
func (b *GetMapURLBuilder) SetTransparent(transparent bool) {
	b.transparent = transparent
}

// TimeString returns the TIME parameter value, or the empty string when no
// TIME parameter is included.
func (b *GetMapURLBuilder) TimeString() string { return b.timeString }

// SetTimeString sets the TIME parameter value. An empty value omits the
// parameter.
func (b *GetMapURLBuilder) SetTimeString(timeString string) {
	b.timeString = timeString
}

// BuildURL assembles the GetMap request URL for one tile. The result starts
// with the service address verbatim; the query continuation is valid no
// matter whether the address already carries a query string, a trailing
// delimiter, or a SERVICE=WMS marker in any casing.
func (b *GetMapURLBuilder) BuildURL(tile *geo.Tile, imageFormat string) (string, error) {
	if tile == nil {
		return "", fmt.Errorf("%w: BuildURL missing tile", ErrInvalidArgument)
	}
	if imageFormat == "" {
		return "", fmt.Errorf("%w: BuildURL missing image format", ErrInvalidArgument)
	}

	var url strings.Builder
	url.WriteString(b.serviceAddress)

	// The first parameter needs a separator unless the address has no
	// query string yet, or already ends in ? or &.
	sep := "&"
	if !strings.Contains(b.serviceAddress, "?") {
		url.WriteByte('?')
		sep = ""
	} else if strings.HasSuffix(b.serviceAddress, "?") || strings.HasSuffix(b.serviceAddress, "&") {
		sep = ""
	}

	param := func(key, value string) {
		url.WriteString(sep)
		url.WriteString(key)
		url.WriteByte('=')
		url.WriteString(value)
		sep = "&"
	}

	if !containsFold(b.serviceAddress, "SERVICE=WMS") {
		param("SERVICE", "WMS")
	}

	param("VERSION", b.wmsVersion)
	param("REQUEST", "GetMap")
	param("LAYERS", b.layerNames)
	param("STYLES", b.styleNames)

	sector := tile.Sector
	if b.wmsVersion == version130 {
		param("CRS", b.coordinateSystem)
		// WMS 1.3.0 honors the CRS's native axis order: lat,lon for the
		// common EPSG geographic systems, lon,lat for CRS:84.
		if b.coordinateSystem == "CRS:84" {
			param("BBOX", bboxLonLat(sector))
		} else {
			param("BBOX", bboxLatLon(sector))
		}
	} else {
		// Earlier versions always use lon,lat.
		param("SRS", b.coordinateSystem)
		param("BBOX", bboxLonLat(sector))
	}

	param("WIDTH", strconv.Itoa(tile.Level.TileWidth))
	param("HEIGHT", strconv.Itoa(tile.Level.TileHeight))
	param("FORMAT", imageFormat)
	if b.transparent {
		param("TRANSPARENT", "TRUE")
	} else {
		param("TRANSPARENT", "FALSE")
	}

	if b.timeString != "" {
		param("TIME", b.timeString)
	}

	return url.String(), nil
}

func bboxLonLat(s geo.Sector) string {
	return formatDegrees(s.MinLongitude) + "," + formatDegrees(s.MinLatitude) + "," +
		formatDegrees(s.MaxLongitude) + "," + formatDegrees(s.MaxLatitude)
}

func bboxLatLon(s geo.Sector) string {
	return formatDegrees(s.MinLatitude) + "," + formatDegrees(s.MinLongitude) + "," +
		formatDegrees(s.MaxLatitude) + "," + formatDegrees(s.MaxLongitude)
}

// formatDegrees renders a coordinate at full float64 precision with at
// least one fractional digit, so whole degrees come out as "10.0" rather
// than "10".
func formatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// containsFold reports whether s contains substr under case folding,
// scanning windows instead of case-folding the whole string.
func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return true
		}
	}
	return false
}
