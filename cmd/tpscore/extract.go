package main

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/unit"
	"github.com/spf13/cobra"

	"github.com/datasciencecampus/transport-network-performance/crs"
	"github.com/datasciencecampus/transport-network-performance/geoio"
	"github.com/datasciencecampus/transport-network-performance/urbancentre"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the urban-centre polygon, buffer and bbox from the configured raster.",
	RunE: func(cmd *cobra.Command, args []string) error {
		bbox := &geom.Bounds{
			Min: geom.Point{X: cfg.BBox[0], Y: cfg.BBox[1]},
			Max: geom.Point{X: cfg.BBox[2], Y: cfg.BBox[3]},
		}
		seed := geom.Point{X: cfg.SeedLon, Y: cfg.SeedLat}

		p := urbancentre.Defaults()
		p.CellPopThreshold = cfg.CellPopThreshold
		p.ClusterPopThreshold = cfg.ClusterPopThreshold
		p.Diag = cfg.Diag
		p.CellFillThreshold = cfg.CellFillThreshold
		p.BufferSize = unit.New(cfg.BufferSizeM, unit.Meter)
		p.Name = cfg.CityName
		p.Country = cfg.CityCountry
		p.Log = log
		if cfg.SeedCRS != "" {
			sr, err := crs.Parse(cfg.SeedCRS)
			if err != nil {
				return err
			}
			p.SeedCRS = sr
		}
		if cfg.BBoxCRS != "" {
			sr, err := crs.Parse(cfg.BBoxCRS)
			if err != nil {
				return err
			}
			p.BBoxCRS = sr
		}

		a, err := urbancentre.Extract(cfg.RasterFile, bbox, seed, p)
		if err != nil {
			return err
		}

		var rows []geoio.ArtifactRow
		for _, l := range a.Labels() {
			b, err := geoio.EncodeWKB(l.Geom)
			if err != nil {
				return err
			}
			rows = append(rows, geoio.ArtifactRow{Label: l.Label, Geometry: b})
		}
		out := cfg.OutDir + "/urban_centre.parquet"
		if err := geoio.WriteArtifactTable(out, a.CRSDef, a.Name, a.Country, rows); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", out)
		return nil
	},
}
