package main

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/spf13/cobra"

	"github.com/datasciencecampus/transport-network-performance/accessibility"
	"github.com/datasciencecampus/transport-network-performance/geoio"
	"github.com/datasciencecampus/transport-network-performance/traveltime"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Aggregate a travel-time matrix into per-destination and summary transport-performance scores.",
	RunE: func(cmd *cobra.Command, args []string) error {
		popRows, _, _, err := geoio.ReadPopulationTable(cfg.OutDir + "/population.parquet")
		if err != nil {
			return fmt.Errorf("score: reading population table (run 'condition' first): %w", err)
		}
		centRows, err := geoio.ReadCentroidTable(cfg.OutDir + "/centroids.parquet")
		if err != nil {
			return fmt.Errorf("score: reading centroids (run 'condition' first): %w", err)
		}

		// Every cell of population.parquet (the whole buffered AOI) is a
		// potential origin, so all of them enter the population index; only
		// cells inside the urban centre feed the summary population figure.
		var ids []int64
		var pops []float64
		var totalPopulation int64
		for _, r := range popRows {
			ids = append(ids, r.ID)
			pops = append(pops, r.Value)
			if r.WithinUrbanCentre {
				totalPopulation += int64(r.Value)
			}
		}
		population, err := accessibility.BuildPopulationIndex(ids, pops)
		if err != nil {
			return err
		}

		centroids := make(map[int64]accessibility.Centroid, len(centRows))
		for _, r := range centRows {
			g, err := geoio.DecodeWKB(r.Centroid)
			if err != nil {
				return err
			}
			pt, ok := g.(geom.Point)
			if !ok {
				continue
			}
			centroids[r.ID] = accessibility.Centroid{ID: r.ID, Lon: pt.X, Lat: pt.Y}
		}

		store, err := traveltime.Open(cfg.OutDir)
		if err != nil {
			return fmt.Errorf("score: opening travel-time store: %w", err)
		}
		ttRows, err := store.Rows()
		if err != nil {
			return err
		}
		rows := make([]accessibility.TravelTimeRow, len(ttRows))
		for i, r := range ttRows {
			rows[i] = accessibility.TravelTimeRow{
				FromID:     r.FromID,
				ToID:       r.ToID,
				TravelTime: r.TravelTime,
				Valid:      r.Valid,
			}
		}

		p := accessibility.Params{
			TravelTimeThreshold: cfg.TravelTimeThreshold,
			MaxDistanceKm:       cfg.MaxDistanceKm,
		}
		perf, err := accessibility.Aggregate(rows, centroids, population, p)
		if err != nil {
			return err
		}

		var areaKm2 float64
		var name, country string
		if ucRows, _, n, c, err := geoio.ReadArtifactTable(cfg.OutDir + "/urban_centre.parquet"); err == nil {
			name, country = n, c
			for _, r := range ucRows {
				if r.Label != "vectorized_uc" {
					continue
				}
				g, err := geoio.DecodeWKB(r.Geometry)
				if err != nil {
					return err
				}
				if poly, ok := g.(geom.Polygon); ok {
					areaKm2 = poly.Area() / 1e6
				}
			}
		}

		stats := accessibility.Summarize(perf, totalPopulation, areaKm2, name, country)
		fmt.Printf("%s, %s: population=%d area_km2=%.2f min=%.2f p25=%.2f median=%.2f p75=%.2f max=%.2f (n=%d)\n",
			stats.Name, stats.Country, stats.Population, stats.AreaKm2,
			stats.Min, stats.P25, stats.Median, stats.P75, stats.Max, len(perf))
		return nil
	},
}
