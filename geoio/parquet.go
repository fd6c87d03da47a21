package geoio

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// PopulationRow is one row of a persisted population table.
type PopulationRow struct {
	ID                int64
	Value             float64
	Geometry          []byte // WKB
	WithinUrbanCentre bool
}

var populationSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	{Name: "geometry", Type: arrow.BinaryTypes.Binary},
	{Name: "within_urban_centre", Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// WritePopulationTable persists rows as a Parquet file at path, with
// varName and crs recorded as schema-level (file-level) metadata; the value
// column itself is always named "value". The write is an atomic
// write-then-rename.
func WritePopulationTable(path, varName, crsDef string, rows []PopulationRow) error {
	meta := arrow.NewMetadata([]string{"var_name", "crs"}, []string{varName, crsDef})
	schema := arrow.NewSchema(populationSchema.Fields(), &meta)

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()
	idB := bldr.Field(0).(*array.Int64Builder)
	valB := bldr.Field(1).(*array.Float64Builder)
	geomB := bldr.Field(2).(*array.BinaryBuilder)
	tagB := bldr.Field(3).(*array.BooleanBuilder)
	for _, r := range rows {
		idB.Append(r.ID)
		valB.Append(r.Value)
		geomB.Append(r.Geometry)
		tagB.Append(r.WithinUrbanCentre)
	}
	rec := bldr.NewRecord()
	defer rec.Release()

	return writeParquet(path, schema, rec)
}

// ReadPopulationTable reads back a table written by WritePopulationTable.
func ReadPopulationTable(path string) ([]PopulationRow, string, string, error) {
	recs, schema, err := readParquet(path)
	if err != nil {
		return nil, "", "", err
	}
	varName, _ := schema.Metadata().GetValue("var_name")
	crsDef, _ := schema.Metadata().GetValue("crs")

	var rows []PopulationRow
	for _, rec := range recs {
		idCol := rec.Column(0).(*array.Int64)
		valCol := rec.Column(1).(*array.Float64)
		geomCol := rec.Column(2).(*array.Binary)
		tagCol := rec.Column(3).(*array.Boolean)
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, PopulationRow{
				ID:                idCol.Value(i),
				Value:             valCol.Value(i),
				Geometry:          append([]byte(nil), geomCol.Value(i)...),
				WithinUrbanCentre: tagCol.Value(i),
			})
		}
		rec.Release()
	}
	return rows, varName, crsDef, nil
}

// CentroidRow is one row of a persisted centroid table.
type CentroidRow struct {
	ID                int64
	Centroid          []byte // WKB point, geographic CRS
	WithinUrbanCentre bool
}

var centroidSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "centroid", Type: arrow.BinaryTypes.Binary},
	{Name: "within_urban_centre", Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// WriteCentroidTable persists rows as a Parquet file at path.
func WriteCentroidTable(path string, rows []CentroidRow) error {
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, centroidSchema)
	defer bldr.Release()
	idB := bldr.Field(0).(*array.Int64Builder)
	cB := bldr.Field(1).(*array.BinaryBuilder)
	tagB := bldr.Field(2).(*array.BooleanBuilder)
	for _, r := range rows {
		idB.Append(r.ID)
		cB.Append(r.Centroid)
		tagB.Append(r.WithinUrbanCentre)
	}
	rec := bldr.NewRecord()
	defer rec.Release()
	return writeParquet(path, centroidSchema, rec)
}

// ReadCentroidTable reads back a table written by WriteCentroidTable.
func ReadCentroidTable(path string) ([]CentroidRow, error) {
	recs, _, err := readParquet(path)
	if err != nil {
		return nil, err
	}
	var rows []CentroidRow
	for _, rec := range recs {
		idCol := rec.Column(0).(*array.Int64)
		cCol := rec.Column(1).(*array.Binary)
		tagCol := rec.Column(2).(*array.Boolean)
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, CentroidRow{
				ID:                idCol.Value(i),
				Centroid:          append([]byte(nil), cCol.Value(i)...),
				WithinUrbanCentre: tagCol.Value(i),
			})
		}
		rec.Release()
	}
	return rows, nil
}

// ArtifactRow is one row of a persisted urban-centre artifact table.
type ArtifactRow struct {
	Label    string
	Geometry []byte // WKB polygon
}

var artifactSchema = arrow.NewSchema([]arrow.Field{
	{Name: "label", Type: arrow.BinaryTypes.String},
	{Name: "geometry", Type: arrow.BinaryTypes.Binary},
}, nil)

// WriteArtifactTable persists rows as a Parquet file at path, with crs,
// name and country recorded as file-level metadata so downstream stages
// can recover a city's identity without it being re-supplied.
func WriteArtifactTable(path, crsDef, name, country string, rows []ArtifactRow) error {
	meta := arrow.NewMetadata(
		[]string{"crs", "name", "country"},
		[]string{crsDef, name, country},
	)
	schema := arrow.NewSchema(artifactSchema.Fields(), &meta)

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()
	labelB := bldr.Field(0).(*array.StringBuilder)
	geomB := bldr.Field(1).(*array.BinaryBuilder)
	for _, r := range rows {
		labelB.Append(r.Label)
		geomB.Append(r.Geometry)
	}
	rec := bldr.NewRecord()
	defer rec.Release()
	return writeParquet(path, schema, rec)
}

// ReadArtifactTable reads back a table written by WriteArtifactTable,
// along with the city name and country recorded alongside it (empty
// strings if the file predates that metadata).
func ReadArtifactTable(path string) (rows []ArtifactRow, crsDef, name, country string, err error) {
	recs, schema, err := readParquet(path)
	if err != nil {
		return nil, "", "", "", err
	}
	crsDef, _ = schema.Metadata().GetValue("crs")
	name, _ = schema.Metadata().GetValue("name")
	country, _ = schema.Metadata().GetValue("country")
	for _, rec := range recs {
		labelCol := rec.Column(0).(*array.String)
		geomCol := rec.Column(1).(*array.Binary)
		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, ArtifactRow{
				Label:    labelCol.Value(i),
				Geometry: append([]byte(nil), geomCol.Value(i)...),
			})
		}
		rec.Release()
	}
	return rows, crsDef, name, country, nil
}

// TravelTimeRow is one row of a persisted travel-time batch.
type TravelTimeRow struct {
	FromID     int64
	ToID       int64
	TravelTime int32
	Valid      bool // false means travel_time is null (unreachable)
}

var travelTimeSchema = arrow.NewSchema([]arrow.Field{
	{Name: "from_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "to_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "travel_time", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)

// WriteTravelTimeTable persists rows as a Parquet file at path, atomically.
func WriteTravelTimeTable(path string, rows []TravelTimeRow) error {
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, travelTimeSchema)
	defer bldr.Release()
	fromB := bldr.Field(0).(*array.Int64Builder)
	toB := bldr.Field(1).(*array.Int64Builder)
	ttB := bldr.Field(2).(*array.Int32Builder)
	for _, r := range rows {
		fromB.Append(r.FromID)
		toB.Append(r.ToID)
		if r.Valid {
			ttB.Append(r.TravelTime)
		} else {
			ttB.AppendNull()
		}
	}
	rec := bldr.NewRecord()
	defer rec.Release()
	return writeParquet(path, travelTimeSchema, rec)
}

// ReadTravelTimeTable reads back a table written by WriteTravelTimeTable.
func ReadTravelTimeTable(path string) ([]TravelTimeRow, error) {
	recs, _, err := readParquet(path)
	if err != nil {
		return nil, err
	}
	var rows []TravelTimeRow
	for _, rec := range recs {
		fromCol := rec.Column(0).(*array.Int64)
		toCol := rec.Column(1).(*array.Int64)
		ttCol := rec.Column(2).(*array.Int32)
		for i := 0; i < int(rec.NumRows()); i++ {
			row := TravelTimeRow{FromID: fromCol.Value(i), ToID: toCol.Value(i)}
			if !ttCol.IsNull(i) {
				row.TravelTime = ttCol.Value(i)
				row.Valid = true
			}
			rows = append(rows, row)
		}
		rec.Release()
	}
	return rows, nil
}

// writeParquet writes a single record to path under a temporary name and
// renames it into place, so a reader never observes a partially-written
// file.
func writeParquet(path string, schema *arrow.Schema, rec arrow.Record) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("geoio: creating %s: %w", tmp, err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmp)
		}
	}()

	props := parquet.NewWriterProperties()
	writer, err := pqarrow.NewFileWriter(schema, f, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("geoio: opening parquet writer for %s: %w", path, err)
	}
	if err = writer.Write(rec); err != nil {
		return fmt.Errorf("geoio: writing %s: %w", path, err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("geoio: closing parquet writer for %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("geoio: closing %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("geoio: finalizing %s: %w", path, err)
	}
	return nil
}

// readParquet reads every record batch of the Parquet file at path.
func readParquet(path string) ([]arrow.Record, *arrow.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("geoio: opening %s: %w", path, err)
	}
	defer f.Close()

	rdr, err := pqarrow.ReadTable(nil, f, nil, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, nil, fmt.Errorf("geoio: reading %s: %w", path, err)
	}
	defer rdr.Release()

	tr := array.NewTableReader(rdr, rdr.NumRows())
	defer tr.Release()

	var recs []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	return recs, rdr.Schema(), nil
}
