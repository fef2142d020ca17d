package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/Fb1234566/TrentOnBike-api/utils"

	geojson "github.com/paulmach/go.geojson"
)

// GeoFilter restricts a listing to a spherical radius around a center.
type GeoFilter struct {
	Lat         float64
	Lng         float64
	RaggioMetri float64
}

// ReportFilters are the query filters of the report listing endpoints.
// Values are validated by the HTTP layer; empty fields mean "no filter".
type ReportFilters struct {
	Stati          []string
	Categorie      []string
	DaData         *time.Time
	AData          *time.Time
	LettaDalComune *bool
	InGruppo       *bool
	Via            string
	Geo            *GeoFilter
	Ordine         string // sortable column name
	Direction      string // ASC or DESC
	Limit          int    // 0 means no limit
}

// GroupFilters are the query filters of the group listing endpoint.
type GroupFilters struct {
	DaData                *time.Time
	AData                 *time.Time
	NumeroSegnalazioni    *int
	NumeroSegnalazioniMin *int
	NumeroSegnalazioniMax *int
	Via                   string
	Geo                   *GeoFilter
	Ordine                string
	Direction             string
	Limit                 int
}

func appendInClause(where *[]string, params *[]any, column string, values []string) {
	if len(values) == 0 {
		return
	}
	qp := make([]string, len(values))
	for i, v := range values {
		qp[i] = "?"
		*params = append(*params, v)
	}
	*where = append(*where, fmt.Sprintf("%s IN(%s)", column, strings.Join(qp, ",")))
}

func appendDateRange(where *[]string, params *[]any, column string, da, a *time.Time) {
	if da != nil {
		*where = append(*where, column+" >= ?")
		*params = append(*params, *da)
	}
	if a != nil {
		// inclusive upper bound on the whole day
		*where = append(*where, column+" < ?")
		*params = append(*params, a.AddDate(0, 0, 1))
	}
}

// appendGeoClause adds an s2 bounding-rect prefilter on the plain lat/lng
// columns plus the exact spherical distance check on the spatial column.
func appendGeoClause(where *[]string, params *[]any, g *GeoFilter) error {
	latLo, latHi, lngLo, lngHi := utils.RadiusBounds(g.Lat, g.Lng, g.RaggioMetri)
	*where = append(*where, "latitudine BETWEEN ? AND ?", "longitudine BETWEEN ? AND ?")
	*params = append(*params, latLo, latHi, lngLo, lngHi)

	center, err := geojson.NewPointGeometry([]float64{g.Lng, g.Lat}).MarshalJSON()
	if err != nil {
		return err
	}
	*where = append(*where, "ST_Distance_Sphere(geom, ST_GeomFromGeoJSON(?)) <= ?")
	*params = append(*params, string(center), g.RaggioMetri)
	return nil
}

func orderAndLimit(ordine, direction string, limit int, defaultOrdine string) string {
	col := defaultOrdine
	if ordine != "" {
		col = ordine
	}
	dir := "DESC"
	if strings.EqualFold(direction, "asc") {
		dir = "ASC"
	}
	clause := fmt.Sprintf(" ORDER BY %s %s", col, dir)
	if limit > 0 {
		clause += fmt.Sprintf(" LIMIT %d", limit)
	}
	return clause
}
