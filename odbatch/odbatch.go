// Package odbatch enumerates origin/destination pairs from a centroid
// table, pre-filters them by straight-line distance, and submits the
// survivors to an external routing engine in batches, persisting each
// batch's travel-time rows before moving on to the next.
package odbatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"

	"github.com/datasciencecampus/transport-network-performance/geoio"
	"github.com/datasciencecampus/transport-network-performance/internal/geoutil"
	"github.com/datasciencecampus/transport-network-performance/tperror"
)

// ErrBatchedDistanceFilterUnsound is returned by Run when NumOrigins > 1
// and AllowUnsoundBatchedFilter is not set. The routing engine re-forms
// its own cartesian product of a batch's origins and destinations
// internally, so a distance pre-filter computed against a single
// representative pair only bounds the submitted set correctly when the
// batch contains exactly one origin.
var ErrBatchedDistanceFilterUnsound = errors.New("odbatch: distance pre-filter is only sound for num_origins=1")

// Point is a geographic point labelled by the id it was derived from.
type Point struct {
	ID       int64
	Lon, Lat float64
}

// Config is the configuration bundle passed through to the routing engine
// on every submission.
type Config struct {
	Departure       time.Time
	Window          time.Duration
	MaxTripDuration time.Duration
	Modes           []string
}

// RoutingEngine is the external collaborator that turns an origin and
// destination set into travel times. Implementations must return a
// *tperror.Error of kind tperror.RoutingOutOfRange (possibly wrapped) if
// departure falls outside the timetable's coverage.
type RoutingEngine interface {
	Route(ctx context.Context, origins, destinations []Point, cfg Config) ([]geoio.TravelTimeRow, error)
}

// Params configures a single Run.
type Params struct {
	MaxDistanceKm             float64 // D; default 11.25
	NumOrigins                int     // batch size; 0 means "all at once"
	AllowUnsoundBatchedFilter bool
	MaxPartitionRows          int // rows per output file; a coarse proxy for the 200MB budget
	OutDir                    string
	Log                       logrus.FieldLogger
}

func (p Params) withDefaults() Params {
	if p.MaxDistanceKm == 0 {
		p.MaxDistanceKm = 11.25
	}
	if p.MaxPartitionRows == 0 {
		p.MaxPartitionRows = 2_000_000
	}
	if p.Log == nil {
		p.Log = logrus.StandardLogger()
	}
	return p
}

// Centroid mirrors the fields of population.Centroid this package needs,
// avoiding an import of the population package.
type Centroid struct {
	ID                int64
	Lon, Lat          float64
	WithinUrbanCentre bool
}

// Plan describes what Run would submit, without contacting the routing
// engine: one entry per batch, with the filtered origin/destination
// counts. It is a dry-run tool for sizing a submission before paying for
// it.
type Plan struct {
	Batches []BatchPlan
}

// BatchPlan is one batch's sizing.
type BatchPlan struct {
	MinOriginID int64
	NumOrigins  int
	NumDest     int
	NumPairs    int
}

// BuildPlan computes the batching and distance pre-filter without calling
// the routing engine.
func BuildPlan(centroids []Centroid, p Params) (*Plan, error) {
	p = p.withDefaults()
	destinations := destinationsOf(centroids)
	batches, err := partition(centroids, p)
	if err != nil {
		return nil, err
	}
	plan := &Plan{}
	for _, batch := range batches {
		pairs := pairsFor(batch, destinations, p)
		origins, dests := distinctSides(pairs)
		plan.Batches = append(plan.Batches, BatchPlan{
			MinOriginID: minID(batch),
			NumOrigins:  len(origins),
			NumDest:     len(dests),
			NumPairs:    len(pairs),
		})
	}
	return plan, nil
}

// Run executes the full batching, filtering, submission and persistence
// pipeline, writing one or more Parquet files under p.OutDir for every
// batch that returns rows (a batch with no rows writes no file). It returns
// the paths of the files it wrote, in submission order.
func Run(ctx context.Context, centroids []Centroid, engine RoutingEngine, cfg Config, p Params) ([]string, error) {
	p = p.withDefaults()
	if p.NumOrigins > 1 && !p.AllowUnsoundBatchedFilter {
		return nil, fmt.Errorf("odbatch.Run: num_origins=%d: %w", p.NumOrigins, ErrBatchedDistanceFilterUnsound)
	}

	destinations := destinationsOf(centroids)
	batches, err := partition(centroids, p)
	if err != nil {
		return nil, err
	}

	cache := requestcache.NewCache(routeProcessor(engine, cfg), 1, requestcache.Deduplicate())

	var written []string
	for _, batch := range batches {
		pairs := pairsFor(batch, destinations, p)
		origins, dests := distinctSides(pairs)

		label := "all"
		if p.NumOrigins > 0 {
			label = fmt.Sprintf("%d", minID(batch))
		}
		req := cache.NewRequest(ctx, routeRequest{origins: origins, destinations: dests}, label)
		res, err := req.Result()
		if err != nil {
			if errors.Is(err, tperror.New("", tperror.RoutingOutOfRange)) {
				return written, err
			}
			return written, fmt.Errorf("odbatch: routing batch %s: %w", label, err)
		}
		rows := res.([]geoio.TravelTimeRow)

		paths, err := persistBatch(p.OutDir, label, rows, p.MaxPartitionRows)
		if err != nil {
			return written, err
		}
		written = append(written, paths...)
		p.Log.WithFields(logrus.Fields{"batch": label, "pairs": len(pairs), "rows": len(rows)}).Info("odbatch: batch complete")
	}
	return written, nil
}

type routeRequest struct {
	origins, destinations []Point
}

func routeProcessor(engine RoutingEngine, cfg Config) requestcache.ProcessFunc {
	return func(ctx context.Context, payload interface{}) (interface{}, error) {
		req := payload.(routeRequest)
		return engine.Route(ctx, req.origins, req.destinations, cfg)
	}
}

// partition splits centroids into contiguous batches of p.NumOrigins
// origins (or one batch of everything if p.NumOrigins == 0).
func partition(centroids []Centroid, p Params) ([][]Centroid, error) {
	if p.NumOrigins == 0 || p.NumOrigins >= len(centroids) {
		return [][]Centroid{centroids}, nil
	}
	if p.NumOrigins < 1 {
		return nil, fmt.Errorf("odbatch: num_origins must be >= 1, got %d", p.NumOrigins)
	}
	var batches [][]Centroid
	for i := 0; i < len(centroids); i += p.NumOrigins {
		end := i + p.NumOrigins
		if end > len(centroids) {
			end = len(centroids)
		}
		batches = append(batches, centroids[i:end])
	}
	return batches, nil
}

func destinationsOf(centroids []Centroid) []Centroid {
	var out []Centroid
	for _, c := range centroids {
		if c.WithinUrbanCentre {
			out = append(out, c)
		}
	}
	return out
}

// pair is a single candidate origin/destination pairing that survived the
// distance pre-filter.
type pair struct {
	origin, dest Centroid
}

// pairsFor returns the candidate pairs for a batch: every origin against
// every destination, unfiltered, when p.NumOrigins == 0 ("all at once" —
// the routing engine itself forms this same cartesian product, so a
// straight-line pre-filter would only drop pairs it is later asked for
// anyway), or the haversine-filtered set otherwise, which is only sound
// when the batch holds a single origin.
func pairsFor(origins, destinations []Centroid, p Params) []pair {
	if p.NumOrigins == 0 {
		return allPairs(origins, destinations)
	}
	return filterPairs(origins, destinations, p.MaxDistanceKm)
}

func allPairs(origins, destinations []Centroid) []pair {
	out := make([]pair, 0, len(origins)*len(destinations))
	for _, o := range origins {
		for _, d := range destinations {
			out = append(out, pair{origin: o, dest: d})
		}
	}
	return out
}

func filterPairs(origins, destinations []Centroid, maxDistanceKm float64) []pair {
	var out []pair
	for _, o := range origins {
		for _, d := range destinations {
			dist := geoutil.HaversineKm(o.Lat, o.Lon, d.Lat, d.Lon)
			if dist <= maxDistanceKm {
				out = append(out, pair{origin: o, dest: d})
			}
		}
	}
	return out
}

func distinctSides(pairs []pair) (origins, dests []Point) {
	seenO := map[int64]bool{}
	seenD := map[int64]bool{}
	for _, p := range pairs {
		if !seenO[p.origin.ID] {
			seenO[p.origin.ID] = true
			origins = append(origins, Point{ID: p.origin.ID, Lon: p.origin.Lon, Lat: p.origin.Lat})
		}
		if !seenD[p.dest.ID] {
			seenD[p.dest.ID] = true
			dests = append(dests, Point{ID: p.dest.ID, Lon: p.dest.Lon, Lat: p.dest.Lat})
		}
	}
	return origins, dests
}

func minID(batch []Centroid) int64 {
	min := batch[0].ID
	for _, c := range batch[1:] {
		if c.ID < min {
			min = c.ID
		}
	}
	return min
}

// persistBatch writes rows to one or more Parquet files under dir, keeping
// each file to at most maxRows rows (a coarse proxy for the pipeline's
// 200MB-in-memory partition budget), named batch-<label>-<n>.parquet.
func persistBatch(dir, label string, rows []geoio.TravelTimeRow, maxRows int) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	var paths []string
	for n := 0; n*maxRows < len(rows); n++ {
		start := n * maxRows
		end := start + maxRows
		if end > len(rows) {
			end = len(rows)
		}
		name := fmt.Sprintf("batch-%s-%d.parquet", label, n)
		path := filepath.Join(dir, name)
		if err := geoio.WriteTravelTimeTable(path, rows[start:end]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
