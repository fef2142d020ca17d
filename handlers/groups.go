package handlers

import (
	"io"
	"net/http"

	"github.com/Fb1234566/TrentOnBike-api/database"
	"github.com/Fb1234566/TrentOnBike-api/middleware"
	"github.com/Fb1234566/TrentOnBike-api/models"

	"github.com/gin-gonic/gin"
)

type GruppiHandler struct {
	groups *database.GroupsService
}

func NewGruppiHandler(groups *database.GroupsService) *GruppiHandler {
	return &GruppiHandler{groups: groups}
}

// Create handles POST /gruppiSegnalazioni.
func (h *GruppiHandler) Create(c *gin.Context) {
	req := &models.CreateGruppoRequest{}
	if err := c.BindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dati mancanti o incompleti."})
		return
	}

	gruppo, err := h.groups.Create(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Gruppo di segnalazioni creato con successo",
		"gruppo":  gruppo,
	})
}

// List handles GET /gruppiSegnalazioni. The limit parameter is required.
func (h *GruppiHandler) List(c *gin.Context) {
	base, err := parseListFilters(c, true)
	if err != nil {
		respondError(c, err)
		return
	}

	filters := &database.GroupFilters{
		DaData:    base.DaData,
		AData:     base.AData,
		Via:       c.Query("via"),
		Ordine:    base.Ordine,
		Direction: base.Direction,
		Limit:     base.Limit,
	}
	if filters.NumeroSegnalazioni, err = parseIntParam(c, "numeroSegnalazioni"); err != nil {
		respondError(c, err)
		return
	}
	if filters.NumeroSegnalazioniMin, err = parseIntParam(c, "numeroSegnalazioniMin"); err != nil {
		respondError(c, err)
		return
	}
	if filters.NumeroSegnalazioniMax, err = parseIntParam(c, "numeroSegnalazioniMax"); err != nil {
		respondError(c, err)
		return
	}
	if filters.Geo, err = parseGeoParams(c); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.groups.List(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get handles GET /gruppiSegnalazioni/:id.
func (h *GruppiHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	gruppo, err := h.groups.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gruppo)
}

// Rename handles PATCH /gruppiSegnalazioni/:id/nome. An empty body
// synthesizes a new name from a member report.
func (h *GruppiHandler) Rename(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	// body is optional: no name means "synthesize one"
	req := &models.UpdateNomeRequest{}
	if err := c.ShouldBindJSON(req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dati mancanti o incompleti."})
		return
	}

	gruppo, err := h.groups.Rename(c.Request.Context(), id, req.Nome)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Nome del gruppo modificato con successo",
		"gruppo":  gruppo,
	})
}

// Delete handles DELETE /gruppiSegnalazioni/:id.
func (h *GruppiHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.groups.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Gruppo eliminato e segnalazioni scollegate correttamente"})
}
