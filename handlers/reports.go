package handlers

import (
	"net/http"

	"github.com/Fb1234566/TrentOnBike-api/apperrors"
	"github.com/Fb1234566/TrentOnBike-api/database"
	"github.com/Fb1234566/TrentOnBike-api/middleware"
	"github.com/Fb1234566/TrentOnBike-api/models"

	"github.com/gin-gonic/gin"
)

type SegnalazioniHandler struct {
	reports *database.ReportsService
	groups  *database.GroupsService
}

func NewSegnalazioniHandler(reports *database.ReportsService, groups *database.GroupsService) *SegnalazioniHandler {
	return &SegnalazioniHandler{reports: reports, groups: groups}
}

// Create handles POST /segnalazioni.
func (h *SegnalazioniHandler) Create(c *gin.Context) {
	req := &models.CreateSegnalazioneRequest{}
	if err := c.BindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dati mancanti o incompleti."})
		return
	}

	seg, err := h.reports.Create(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seg)
}

// ListMine handles GET /segnalazioni/mie.
func (h *SegnalazioniHandler) ListMine(c *gin.Context) {
	filters, err := parseListFilters(c, false)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.reports.ListMine(c.Request.Context(), c.GetString(middleware.ContextUserID), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// List handles GET /segnalazioni.
func (h *SegnalazioniHandler) List(c *gin.Context) {
	filters, err := parseListFilters(c, false)
	if err != nil {
		respondError(c, err)
		return
	}
	if filters.LettaDalComune, err = parseBoolParam(c, "lettaDalComune"); err != nil {
		respondError(c, err)
		return
	}
	if filters.InGruppo, err = parseBoolParam(c, "gruppoSegnalazioni"); err != nil {
		respondError(c, err)
		return
	}
	if filters.Geo, err = parseGeoParams(c); err != nil {
		respondError(c, err)
		return
	}
	filters.Via = c.Query("via")

	res, err := h.reports.List(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get handles GET /segnalazioni/:id.
func (h *SegnalazioniHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	seg, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seg)
}

// SetCommento handles PATCH /segnalazioni/:id/commento.
func (h *SegnalazioniHandler) SetCommento(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	req := &models.UpdateCommentoRequest{}
	if err := c.BindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dati mancanti o incompleti."})
		return
	}

	seg, err := h.reports.SetCommento(c.Request.Context(), id, req.Commento)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Commento aggiornato", "segnalazione": seg})
}

// SetStato handles PATCH /segnalazioni/:id/stato. For a grouped report the
// new status is applied to every report in the group.
func (h *SegnalazioniHandler) SetStato(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	req := &models.UpdateStatoRequest{}
	if err := c.BindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Stato non valido"})
		return
	}

	res, err := h.reports.SetStato(c.Request.Context(), id, req.Stato)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":                res.Message,
		"segnalazione":           res.Segnalazione,
		"segnalazioniAggiornate": res.Aggiornate,
	})
}

// MarkRead handles PATCH /segnalazioni/:id/lettura, idempotently.
func (h *SegnalazioniHandler) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	res, err := h.reports.MarkRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	message := "Segnalazione marcata come letta"
	if res.Already {
		message = "Segnalazione già marcata come letta"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "segnalazione": res.Segnalazione})
}

// SetGruppo handles PATCH /segnalazioni/:id/gruppoSegnalazioni. A group id
// in the body attaches the report; an explicit null detaches it.
func (h *SegnalazioniHandler) SetGruppo(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	req := &models.UpdateGruppoRequest{}
	if err := c.BindJSON(req); err != nil {
		respondError(c, apperrors.Validationf("Dati mancanti o incompleti."))
		return
	}

	if req.GruppoSegnalazioni == nil {
		res, err := h.groups.Detach(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message})
		return
	}

	res, err := h.groups.Attach(c.Request.Context(), id, *req.GruppoSegnalazioni)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}
