package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OmarAlqahtani/WorldWindAndroid2/internal/logging"
	"github.com/OmarAlqahtani/WorldWindAndroid2/internal/stitcher"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/geo"
	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/wms"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wmsmap",
	Short: "Fetch and stitch map imagery from OGC Web Map Services",
	Long: `wmsmap builds WMS GetMap requests and assembles the returned imagery
into a single map image for any bounding box.

Examples:
  # Fetch a world map from a WMS 1.3.0 endpoint
  wmsmap --service https://example.com/wms --layers world --bbox -90,-180,90,180 --level 1 -o world.png

  # Print the GetMap URL for one tile without fetching anything
  wmsmap url --service https://example.com/wms --layers world --bbox 10,30,20,40

  # Start the HTTP API
  wmsmap serve --port 8080`,
	RunE: runFetch,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wmsmap.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")

	// WMS service options
	rootCmd.PersistentFlags().String("service", "", "WMS service address (required)")
	rootCmd.PersistentFlags().String("wms-version", "1.3.0", "WMS protocol version")
	rootCmd.PersistentFlags().String("layers", "", "comma-separated WMS layer names (required)")
	rootCmd.PersistentFlags().String("styles", "", "comma-separated WMS style names")
	rootCmd.PersistentFlags().String("crs", "EPSG:4326", "coordinate reference system identifier")
	rootCmd.PersistentFlags().Bool("transparent", true, "request transparent imagery")
	rootCmd.PersistentFlags().String("time", "", "TIME parameter value")

	// Extent options
	rootCmd.PersistentFlags().String("bbox", "", "bounding box as 'min-lat,min-lon,max-lat,max-lon'")
	rootCmd.PersistentFlags().Float64("min-lat", 0, "minimum latitude (south boundary)")
	rootCmd.PersistentFlags().Float64("min-lon", 0, "minimum longitude (west boundary)")
	rootCmd.PersistentFlags().Float64("max-lat", 0, "maximum latitude (north boundary)")
	rootCmd.PersistentFlags().Float64("max-lon", 0, "maximum longitude (east boundary)")

	// Output options
	rootCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	rootCmd.Flags().Int("level", 0, "tile pyramid level to fetch")
	rootCmd.PersistentFlags().String("format", "image/png", "image format requested from the service")
	rootCmd.Flags().IntP("tilesize", "t", 256, "tile size in pixels")
	rootCmd.Flags().String("user-agent", "wmsmap/1.0.0", "HTTP User-Agent header")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("service", rootCmd.PersistentFlags().Lookup("service"))
	viper.BindPFlag("wms-version", rootCmd.PersistentFlags().Lookup("wms-version"))
	viper.BindPFlag("layers", rootCmd.PersistentFlags().Lookup("layers"))
	viper.BindPFlag("styles", rootCmd.PersistentFlags().Lookup("styles"))
	viper.BindPFlag("crs", rootCmd.PersistentFlags().Lookup("crs"))
	viper.BindPFlag("transparent", rootCmd.PersistentFlags().Lookup("transparent"))
	viper.BindPFlag("time", rootCmd.PersistentFlags().Lookup("time"))
	viper.BindPFlag("bbox", rootCmd.PersistentFlags().Lookup("bbox"))
	viper.BindPFlag("min-lat", rootCmd.PersistentFlags().Lookup("min-lat"))
	viper.BindPFlag("min-lon", rootCmd.PersistentFlags().Lookup("min-lon"))
	viper.BindPFlag("max-lat", rootCmd.PersistentFlags().Lookup("max-lat"))
	viper.BindPFlag("max-lon", rootCmd.PersistentFlags().Lookup("max-lon"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("level", rootCmd.Flags().Lookup("level"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("tilesize", rootCmd.Flags().Lookup("tilesize"))
	viper.BindPFlag("user-agent", rootCmd.Flags().Lookup("user-agent"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".wmsmap" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wmsmap")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// builderFromFlags assembles the URL builder from the service flags.
func builderFromFlags() (*wms.GetMapURLBuilder, error) {
	address := viper.GetString("service")
	layers := viper.GetString("layers")
	if address == "" {
		return nil, fmt.Errorf("a WMS service address is required (use --service)")
	}
	if layers == "" {
		return nil, fmt.Errorf("at least one layer name is required (use --layers)")
	}

	config := wms.NewLayerConfig(address, layers)
	config.WmsVersion = viper.GetString("wms-version")
	config.StyleNames = viper.GetString("styles")
	config.CoordinateSystem = viper.GetString("crs")
	config.Transparent = viper.GetBool("transparent")
	config.TimeString = viper.GetString("time")

	return wms.NewGetMapURLBuilderFromConfig(config)
}

// sectorFromFlags parses either --bbox or the four boundary flags.
func sectorFromFlags() (geo.Sector, error) {
	if bbox := viper.GetString("bbox"); bbox != "" {
		return parseBBox(bbox)
	}

	minLat := viper.GetFloat64("min-lat")
	minLon := viper.GetFloat64("min-lon")
	maxLat := viper.GetFloat64("max-lat")
	maxLon := viper.GetFloat64("max-lon")

	if minLat == 0 && minLon == 0 && maxLat == 0 && maxLon == 0 {
		return geo.Sector{}, fmt.Errorf("a bounding box is required (use --bbox or --min-lat/--min-lon/--max-lat/--max-lon)")
	}

	return geo.NewSector(minLat, minLon, maxLat, maxLon)
}

// parseBBox parses "min-lat,min-lon,max-lat,max-lon".
func parseBBox(bbox string) (geo.Sector, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return geo.Sector{}, fmt.Errorf("bbox must be in format 'min-lat,min-lon,max-lat,max-lon'")
	}

	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geo.Sector{}, fmt.Errorf("invalid bbox component %q: %v", part, err)
		}
		values[i] = v
	}

	return geo.NewSector(values[0], values[1], values[2], values[3])
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && viper.GetString("service") == "" {
		return cmd.Help()
	}

	log := logging.New(viper.GetString("log-level"), os.Stderr)

	builder, err := builderFromFlags()
	if err != nil {
		return err
	}

	sector, err := sectorFromFlags()
	if err != nil {
		return err
	}

	level := viper.GetInt("level")
	tileSize := viper.GetInt("tilesize")

	levelSet, err := geo.NewLevelSet(geo.FullSphere, 90, level+1, tileSize, tileSize)
	if err != nil {
		return err
	}

	st := stitcher.New(viper.GetString("user-agent"), log)
	result, err := st.Stitch(context.Background(), &stitcher.Options{
		Builder:     builder,
		LevelSet:    levelSet,
		LevelNumber: level,
		Sector:      sector,
		ImageFormat: viper.GetString("format"),
	})
	if err != nil {
		return err
	}

	output := viper.GetString("output")
	if output == "" {
		if stat, _ := os.Stdout.Stat(); (stat.Mode() & os.ModeCharDevice) != 0 {
			return fmt.Errorf("didn't specify output file and standard output is a terminal")
		}
		_, err = os.Stdout.Write(result.ImageData)
		return err
	}

	log.Infof("writing %dx%d map to %s", result.Width, result.Height, output)
	return os.WriteFile(output, result.ImageData, 0o644)
}
