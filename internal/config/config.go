// Package config reads the TOML configuration file that drives the
// tpscore command-line tool, mirroring the configuration layer of the
// teacher's own command-line tool: a single decoded struct with
// environment-variable expansion applied to path fields.
package config

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/BurntSushi/toml"
)

// Data holds a single run's configuration.
type Data struct {
	// RasterFile is the low-resolution population raster used for urban-
	// centre extraction. Can include environment variables.
	RasterFile string

	// PopulationRasterFile is the high-resolution population raster used
	// for population conditioning. Can include environment variables.
	PopulationRasterFile string

	// BBox is the urban-centre extraction window, [minX, minY, maxX, maxY]
	// in the raster's CRS.
	BBox [4]float64

	// SeedLon, SeedLat is the urban-centre seed point.
	SeedLon float64
	SeedLat float64
	SeedCRS string // PROJ4 definition; empty means "same as raster"
	BBoxCRS string // PROJ4 definition; empty means "same as raster", no check performed

	CellPopThreshold    float64
	ClusterPopThreshold float64
	Diag                bool
	CellFillThreshold   int
	BufferSizeM         float64

	PopulationRound     bool
	PopulationThreshold *float64

	MaxDistanceKm             float64
	NumOrigins                int
	AllowUnsoundBatchedFilter bool
	MaxPartitionRows          int
	RoutingEndpoint           string
	RoutingModes              []string
	RoutingWindowMinutes      float64
	RoutingMaxTripMinutes     float64

	TravelTimeThreshold int32

	OutDir string // Can include environment variables.
	LogDir string // Can include environment variables.

	CityName    string
	CityCountry string
}

// Defaults mirrors the component-level defaults named in the pipeline's
// contract, for fields a configuration file may omit.
func Defaults() Data {
	return Data{
		CellPopThreshold:    1500,
		ClusterPopThreshold: 50000,
		CellFillThreshold:   5,
		BufferSizeM:         10000,
		MaxDistanceKm:       11.25,
		TravelTimeThreshold: 45,
		MaxPartitionRows:    2_000_000,
	}
}

// Read reads and parses a TOML configuration file, expanding environment
// variables in every path-valued field.
func Read(filename string) (*Data, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("config: %v does not appear to exist: %w", filename, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	b, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("config: reading %v: %w", filename, err)
	}

	cfg := Defaults()
	if _, err := toml.Decode(string(b), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %v: %w", filename, err)
	}

	cfg.RasterFile = os.ExpandEnv(cfg.RasterFile)
	cfg.PopulationRasterFile = os.ExpandEnv(cfg.PopulationRasterFile)
	cfg.OutDir = os.ExpandEnv(cfg.OutDir)
	cfg.LogDir = os.ExpandEnv(cfg.LogDir)

	if cfg.RasterFile == "" {
		return nil, fmt.Errorf("config: RasterFile must be specified")
	}
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("config: OutDir must be specified")
	}
	return &cfg, nil
}
