package wms

// LayerConfig holds the service parameters used to build GetMap request
// URLs. StyleNames and TimeString may be empty, in which case the server
// default style is assumed and no TIME parameter is included.
type LayerConfig struct {
	ServiceAddress   string
	WmsVersion       string
	LayerNames       string
	StyleNames       string
	CoordinateSystem string
	Transparent      bool
	TimeString       string
}

// NewLayerConfig creates a config for the given service address and layer
// names with the commonly used defaults: WMS 1.3.0, EPSG:4326, transparent.
func NewLayerConfig(serviceAddress, layerNames string) *LayerConfig {
	return &LayerConfig{
		ServiceAddress:   serviceAddress,
		WmsVersion:       "1.3.0",
		LayerNames:       layerNames,
		CoordinateSystem: "EPSG:4326",
		Transparent:      true,
	}
}
