package urbancentre

import (
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/geom"
	shpio "github.com/ctessum/geom/encoding/shp"
)

// shapeRow is the archetype record shpio.NewEncoder uses to infer the
// output shapefile's field list and geometry type.
type shapeRow struct {
	Label   string
	Polygon geom.Polygon
}

// WriteShapefile writes a's three labelled polygons to path (a ".shp"
// file, with matching ".shx"/".dbf"/".prj" siblings) for visual debugging
// in GIS tooling. It is not part of the persisted pipeline output — see
// package geoio for that.
func WriteShapefile(path string, a *Artifact) error {
	enc, err := shpio.NewEncoder(path, shapeRow{})
	if err != nil {
		return fmt.Errorf("urbancentre: creating shapefile %s: %w", path, err)
	}
	defer enc.Close()

	for _, l := range a.Labels() {
		if err := enc.Encode(shapeRow{Label: l.Label, Polygon: l.Geom}); err != nil {
			return fmt.Errorf("urbancentre: writing shapefile row %s: %w", l.Label, err)
		}
	}

	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := os.WriteFile(prj, []byte(a.CRSDef), 0o644); err != nil {
		return fmt.Errorf("urbancentre: writing %s: %w", prj, err)
	}
	return nil
}
