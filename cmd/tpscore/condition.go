package main

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/spf13/cobra"

	"github.com/datasciencecampus/transport-network-performance/geoio"
	"github.com/datasciencecampus/transport-network-performance/population"
)

var conditionCmd = &cobra.Command{
	Use:   "condition",
	Short: "Condition the high-resolution raster into population and centroid tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ucRows, crsDef, _, _, err := geoio.ReadArtifactTable(cfg.OutDir + "/urban_centre.parquet")
		if err != nil {
			return fmt.Errorf("condition: reading urban-centre artifact (run 'extract' first): %w", err)
		}
		var aoi, uc geom.Polygon
		for _, r := range ucRows {
			g, err := geoio.DecodeWKB(r.Geometry)
			if err != nil {
				return err
			}
			poly, ok := g.(geom.Polygon)
			if !ok {
				continue
			}
			switch r.Label {
			case "buffer":
				aoi = poly
			case "vectorized_uc":
				uc = poly
			}
		}

		p := population.Params{Log: log}
		if cfg.PopulationRound {
			p.Round = true
		}
		if cfg.PopulationThreshold != nil {
			p.Threshold = cfg.PopulationThreshold
		}

		tbl, err := population.Condition(cfg.PopulationRasterFile, aoi, uc, p)
		if err != nil {
			return err
		}

		var popRows []geoio.PopulationRow
		for _, c := range tbl.Cells {
			b, err := geoio.EncodeWKB(c.Geometry)
			if err != nil {
				return err
			}
			popRows = append(popRows, geoio.PopulationRow{
				ID: c.ID, Value: c.Population, Geometry: b, WithinUrbanCentre: c.WithinUrbanCentre,
			})
		}
		var centRows []geoio.CentroidRow
		for _, c := range tbl.Centroids {
			b, err := geoio.EncodeWKB(c.Point)
			if err != nil {
				return err
			}
			centRows = append(centRows, geoio.CentroidRow{
				ID: c.ID, Centroid: b, WithinUrbanCentre: c.WithinUrbanCentre,
			})
		}

		popOut := cfg.OutDir + "/population.parquet"
		if err := geoio.WritePopulationTable(popOut, "population", crsDef, popRows); err != nil {
			return err
		}
		centOut := cfg.OutDir + "/centroids.parquet"
		if err := geoio.WriteCentroidTable(centOut, centRows); err != nil {
			return err
		}
		fmt.Printf("wrote %s and %s\n", popOut, centOut)
		return nil
	},
}
