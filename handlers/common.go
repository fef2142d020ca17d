package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Fb1234566/TrentOnBike-api/apperrors"
	"github.com/Fb1234566/TrentOnBike-api/database"
	"github.com/Fb1234566/TrentOnBike-api/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// HealthCheck returns a simple health status
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "trentonbike-api",
	})
}

// respondError maps a service error to its HTTP response. Business errors
// carry their own user-facing message; anything else is a 500 with a generic
// body and a server-side log line.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("Unexpected error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"message": "Errore interno del server."})
		return
	}
	if apperrors.IsKind(err, apperrors.KindIntegrity) {
		log.Errorf("Data inconsistency on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperrors.Validationf("Parametro id non valido"))
		return 0, false
	}
	return id, true
}

func parseCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var sortableColumns = map[string]string{
	"creataIl":         "creata_il",
	"creatoIl":         "creato_il",
	"ultimaModificaIl": "ultima_modifica_il",
}

// parseListFilters parses the filter query params shared by the listing
// endpoints. Every invalid value is a 400 naming the offending parameter.
func parseListFilters(c *gin.Context, requireLimit bool) (*database.ReportFilters, error) {
	f := &database.ReportFilters{}

	for _, stato := range parseCSV(c.Query("stati")) {
		if !models.IsValidStato(stato) {
			return nil, apperrors.Validationf("Stato non valido: %s", stato)
		}
		f.Stati = append(f.Stati, stato)
	}
	for _, categoria := range parseCSV(c.Query("categorie")) {
		if !models.IsValidCategoria(categoria) {
			return nil, apperrors.Validationf("Categoria non valida: %s", categoria)
		}
		f.Categorie = append(f.Categorie, categoria)
	}

	var err error
	if f.DaData, err = parseDateParam(c, "daData"); err != nil {
		return nil, err
	}
	if f.AData, err = parseDateParam(c, "aData"); err != nil {
		return nil, err
	}

	if ordine := c.Query("ordine"); ordine != "" {
		col, ok := sortableColumns[ordine]
		if !ok {
			return nil, apperrors.Validationf("Parametro ordine non valido")
		}
		f.Ordine = col
	}
	if direction := c.Query("direction"); direction != "" {
		if !strings.EqualFold(direction, "asc") && !strings.EqualFold(direction, "desc") {
			return nil, apperrors.Validationf("Parametro direction non valido")
		}
		f.Direction = direction
	}

	limitStr, hasLimit := c.GetQuery("limit")
	if requireLimit && !hasLimit {
		return nil, apperrors.Validationf("Parametro limit non valido")
	}
	if hasLimit {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return nil, apperrors.Validationf("Parametro limit non valido")
		}
		f.Limit = limit
	}

	return f, nil
}

func parseDateParam(c *gin.Context, name string) (*time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperrors.Validationf("Parametro %s non valido", name)
	}
	return &t, nil
}

func parseBoolParam(c *gin.Context, name string) (*bool, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, apperrors.Validationf("Parametro %s non valido", name)
	}
	return &b, nil
}

func parseIntParam(c *gin.Context, name string) (*int, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, apperrors.Validationf("Parametro %s non valido", name)
	}
	return &n, nil
}

// parseGeoParams parses the lat/lng/raggio triple. Either all three are
// present or none.
func parseGeoParams(c *gin.Context) (*database.GeoFilter, error) {
	latStr, hasLat := c.GetQuery("lat")
	lngStr, hasLng := c.GetQuery("lng")
	raggioStr, hasRaggio := c.GetQuery("raggio")
	if !hasLat && !hasLng && !hasRaggio {
		return nil, nil
	}
	if !hasLat || !hasLng || !hasRaggio {
		return nil, apperrors.Validationf("Parametri lat, lng e raggio devono essere forniti insieme")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, apperrors.Validationf("Parametro lat non valido")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, apperrors.Validationf("Parametro lng non valido")
	}
	raggio, err := strconv.ParseFloat(raggioStr, 64)
	if err != nil || raggio <= 0 {
		return nil, apperrors.Validationf("Parametro raggio non valido")
	}
	return &database.GeoFilter{Lat: lat, Lng: lng, RaggioMetri: raggio}, nil
}
