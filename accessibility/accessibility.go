// Package accessibility joins a travel-time matrix with population and
// centroid tables to compute, per destination cell inside the urban
// centre, the accessible and proximate population and the resulting
// transport-performance percentage, plus summary statistics.
package accessibility

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/datasciencecampus/transport-network-performance/internal/geoutil"
	"github.com/datasciencecampus/transport-network-performance/tperror"
)

// Centroid is the subset of the centroid table this package joins
// against, keyed by id.
type Centroid struct {
	ID       int64
	Lon, Lat float64
}

// PopulationByID maps a cell id to its population, as attached to origins.
type PopulationByID map[int64]float64

// BuildPopulationIndex converts a population table (id, population pairs)
// into a PopulationByID, asserting the 1-to-1 cardinality the join in
// Aggregate depends on: a population table with a duplicated id is a bug,
// not data to silently sum or overwrite.
func BuildPopulationIndex(ids []int64, populations []float64) (PopulationByID, error) {
	idx := make(PopulationByID, len(ids))
	for i, id := range ids {
		if _, dup := idx[id]; dup {
			return nil, tperror.New("accessibility.BuildPopulationIndex", tperror.CardinalityViolation).
				WithParam("id", id).WithCause(fmt.Errorf("duplicate population id"))
		}
		idx[id] = populations[i]
	}
	return idx, nil
}

// TravelTimeRow is one row of the travel-time matrix.
type TravelTimeRow struct {
	FromID     int64
	ToID       int64
	TravelTime int32
	Valid      bool
}

// Params configures a single aggregation run.
type Params struct {
	TravelTimeThreshold int32   // T, minutes; default 45
	MaxDistanceKm       float64 // D, km; default 11.25
}

func (p Params) withDefaults() Params {
	if p.TravelTimeThreshold == 0 {
		p.TravelTimeThreshold = 45
	}
	if p.MaxDistanceKm == 0 {
		p.MaxDistanceKm = 11.25
	}
	return p
}

// PerformanceRow is one row of the aggregator's output.
type PerformanceRow struct {
	ToID                 int64
	AccessiblePopulation float64
	ProximityPopulation  float64
	TransportPerformance float64 // percentage; NaN if ProximityPopulation == 0
}

// Aggregate computes one PerformanceRow per destination id that has at
// least one proximate origin in rows (an origin within MaxDistanceKm whose
// population and centroid are both known); destinations without one get no
// row. It streams the join and accumulates sums per destination rather
// than materialising the full joined table.
func Aggregate(rows []TravelTimeRow, centroids map[int64]Centroid, population PopulationByID, p Params) ([]PerformanceRow, error) {
	p = p.withDefaults()

	accessible := make(map[int64]float64)
	proximity := make(map[int64]float64)
	seenDest := make(map[int64]bool)

	for _, r := range rows {
		originPop, ok := population[r.FromID]
		if !ok {
			// Origin had no population attached (outside the AOI); excluded
			// from both sums per the join contract.
			continue
		}
		origin, ok := centroids[r.FromID]
		if !ok {
			continue
		}
		dest, ok := centroids[r.ToID]
		if !ok {
			continue
		}

		dist := geoutil.HaversineKm(origin.Lat, origin.Lon, dest.Lat, dest.Lon)
		if dist > p.MaxDistanceKm {
			continue
		}
		seenDest[r.ToID] = true
		proximity[r.ToID] += originPop
		if r.Valid && r.TravelTime <= p.TravelTimeThreshold {
			accessible[r.ToID] += originPop
		}
	}

	out := make([]PerformanceRow, 0, len(seenDest))
	for id := range seenDest {
		acc := accessible[id]
		prox := proximity[id]
		perf := acc / prox * 100
		out = append(out, PerformanceRow{
			ToID:                 id,
			AccessiblePopulation: acc,
			ProximityPopulation:  prox,
			TransportPerformance: perf,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToID < out[j].ToID })
	return out, nil
}

// Stats is the distributional summary over a city's performance rows.
type Stats struct {
	Min, P25, Median, P75, Max float64
	Population                int64
	AreaKm2                   float64
	Name, Country             string
}

// Summarize computes Stats over rows' TransportPerformance values. rows
// with ProximityPopulation == 0 (undefined performance) are excluded from
// the percentile computation.
func Summarize(rows []PerformanceRow, population int64, areaKm2 float64, name, country string) Stats {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.ProximityPopulation > 0 {
			values = append(values, r.TransportPerformance)
		}
	}
	sort.Float64s(values)

	s := Stats{Population: population, AreaKm2: areaKm2, Name: name, Country: country}
	if len(values) == 0 {
		return s
	}
	s.Min = values[0]
	s.Max = values[len(values)-1]
	// stat.LinInterp interpolates the empirical CDF, which places the k-th
	// (1-based) order statistic at k/n. Evaluating it at (1+p(n-1))/n
	// instead interpolates linearly between order statistics placed at
	// (k-1)/(n-1), so the median of an even-length sample is the mean of
	// its two middle values.
	n := float64(len(values))
	quantile := func(p float64) float64 {
		return stat.Quantile((1+p*(n-1))/n, stat.LinInterp, values, nil)
	}
	s.P25 = quantile(0.25)
	s.Median = quantile(0.5)
	s.P75 = quantile(0.75)
	return s
}
