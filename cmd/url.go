package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OmarAlqahtani/WorldWindAndroid2/pkg/geo"
)

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the GetMap URL for a single tile",
	Long: `Print the GetMap request URL for one tile without performing any
network request. Useful for inspecting exactly what the service will be
asked for, including the version-dependent BBOX axis order.

Examples:
  wmsmap url --service https://example.com/wms --layers world --bbox 10,30,20,40
  wmsmap url --service https://example.com/wms --wms-version 1.1.1 --layers world --bbox 10,30,20,40`,
	RunE: runURL,
}

func init() {
	rootCmd.AddCommand(urlCmd)

	urlCmd.Flags().Int("width", 256, "tile width in pixels")
	urlCmd.Flags().Int("height", 256, "tile height in pixels")

	viper.BindPFlag("url.width", urlCmd.Flags().Lookup("width"))
	viper.BindPFlag("url.height", urlCmd.Flags().Lookup("height"))
}

func runURL(cmd *cobra.Command, args []string) error {
	builder, err := builderFromFlags()
	if err != nil {
		return err
	}

	sector, err := sectorFromFlags()
	if err != nil {
		return err
	}

	width := viper.GetInt("url.width")
	height := viper.GetInt("url.height")
	if width < 1 || height < 1 {
		return fmt.Errorf("width and height must be positive")
	}

	tile := &geo.Tile{
		Sector: sector,
		Level:  &geo.Level{TileDelta: sector.DeltaLatitude(), TileWidth: width, TileHeight: height},
	}

	url, err := builder.BuildURL(tile, viper.GetString("format"))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
