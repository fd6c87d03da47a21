package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ctessum/geom"
	"github.com/spf13/cobra"

	"github.com/datasciencecampus/transport-network-performance/geoio"
	"github.com/datasciencecampus/transport-network-performance/odbatch"
)

var batchDryRun bool

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch origins and destinations against the routing engine and persist travel times.",
	RunE: func(cmd *cobra.Command, args []string) error {
		centRows, err := geoio.ReadCentroidTable(cfg.OutDir + "/centroids.parquet")
		if err != nil {
			return fmt.Errorf("batch: reading centroids (run 'condition' first): %w", err)
		}

		centroids := make([]odbatch.Centroid, 0, len(centRows))
		for _, r := range centRows {
			g, err := geoio.DecodeWKB(r.Centroid)
			if err != nil {
				return err
			}
			pt, ok := g.(geom.Point)
			if !ok {
				continue
			}
			centroids = append(centroids, odbatch.Centroid{
				ID: r.ID, Lon: pt.X, Lat: pt.Y, WithinUrbanCentre: r.WithinUrbanCentre,
			})
		}

		p := odbatch.Params{
			MaxDistanceKm:             cfg.MaxDistanceKm,
			NumOrigins:                cfg.NumOrigins,
			AllowUnsoundBatchedFilter: cfg.AllowUnsoundBatchedFilter,
			MaxPartitionRows:          cfg.MaxPartitionRows,
			OutDir:                    cfg.OutDir,
			Log:                       log,
		}

		if batchDryRun {
			plan, err := odbatch.BuildPlan(centroids, p)
			if err != nil {
				return err
			}
			for _, b := range plan.Batches {
				fmt.Printf("batch min_origin_id=%d origins=%d destinations=%d pairs=%d\n",
					b.MinOriginID, b.NumOrigins, b.NumDest, b.NumPairs)
			}
			return nil
		}

		if cfg.RoutingEndpoint == "" {
			return fmt.Errorf("batch: RoutingEndpoint must be configured")
		}
		engine := newHTTPRoutingEngine(cfg.RoutingEndpoint)

		rcfg := odbatch.Config{
			Departure:       time.Now(),
			Window:          time.Duration(cfg.RoutingWindowMinutes) * time.Minute,
			MaxTripDuration: time.Duration(cfg.RoutingMaxTripMinutes) * time.Minute,
			Modes:           cfg.RoutingModes,
		}

		paths, err := odbatch.Run(context.Background(), centroids, engine, rcfg, p)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Println("wrote", path)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "print batch sizing without contacting the routing engine")
}
