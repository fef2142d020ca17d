package models

import "time"

// Stati di una segnalazione.
const (
	StatoDaVerificare = "DA_VERIFICARE"
	StatoAttiva       = "ATTIVA"
	StatoRisolta      = "RISOLTA"
	StatoScartata     = "SCARTATA"
)

// Categorie di una segnalazione.
const (
	CategoriaOstacolo             = "OSTACOLO"
	CategoriaIlluminazione        = "ILLUMINAZIONE_INSUFFICIENTE"
	CategoriaPistaDanneggiata     = "PISTA_DANNEGGIATA"
	CategoriaSegnalazioneStradale = "SEGNALAZIONE_STRADALE_MANCANTE"
	CategoriaAltro                = "ALTRO"
)

// Ruoli utente.
const (
	RuoloUtente    = "utente"
	RuoloOperatore = "operatore"
	RuoloAdmin     = "admin"
)

// Stati returns the closed set of valid report statuses.
func Stati() []string {
	return []string{StatoDaVerificare, StatoAttiva, StatoRisolta, StatoScartata}
}

// Categorie returns the closed set of valid report categories.
func Categorie() []string {
	return []string{
		CategoriaOstacolo,
		CategoriaIlluminazione,
		CategoriaPistaDanneggiata,
		CategoriaSegnalazioneStradale,
		CategoriaAltro,
	}
}

func IsValidStato(stato string) bool {
	for _, s := range Stati() {
		if s == stato {
			return true
		}
	}
	return false
}

func IsValidCategoria(categoria string) bool {
	for _, c := range Categorie() {
		if c == categoria {
			return true
		}
	}
	return false
}

// Posizione is a GeoJSON-style point with an optional resolved street name.
// Coordinates are [longitude, latitude].
type Posizione struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Via         string    `json:"via,omitempty"`
}

func (p *Posizione) Valid() bool {
	return p != nil && len(p.Coordinates) == 2
}

func (p *Posizione) Longitudine() float64 { return p.Coordinates[0] }
func (p *Posizione) Latitudine() float64  { return p.Coordinates[1] }

// Segnalazione is a citizen report of a road/path condition.
// Utente and LettaDalComune are withheld from the reporting citizen's own
// listing, hence the omitempty pointers.
type Segnalazione struct {
	ID                 int64     `json:"id"`
	Utente             string    `json:"utente,omitempty"`
	Posizione          Posizione `json:"posizione"`
	Categoria          string    `json:"categoria"`
	Descrizione        string    `json:"descrizione"`
	Stato              string    `json:"stato"`
	CommentoOperatore  string    `json:"commentoOperatore,omitempty"`
	LettaDalComune     *bool     `json:"lettaDalComune,omitempty"`
	GruppoSegnalazioni *int64    `json:"gruppoSegnalazioni"`
	CreataIl           time.Time `json:"creataIl"`
	UltimaModificaIl   time.Time `json:"ultimaModificaIl"`
}

// GruppoSegnalazioni is a cluster of reports describing the same physical
// issue. NumeroSegnalazioni is the authoritative member count; a persisted
// group always has at least one member.
type GruppoSegnalazioni struct {
	ID                 int64     `json:"id"`
	Nome               string    `json:"nome"`
	Posizione          Posizione `json:"posizione"`
	CreatoDa           string    `json:"creatoDa,omitempty"`
	CreatoIl           time.Time `json:"creatoIl"`
	UltimaModificaIl   time.Time `json:"ultimaModificaIl"`
	NumeroSegnalazioni int       `json:"numeroSegnalazioni"`
}

// User is an account record. PasswordHash never leaves the service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Nome      string    `json:"nome"`
	Cognome   string    `json:"cognome,omitempty"`
	Ruolo     string    `json:"ruolo"`
	CreatedAt time.Time `json:"createdAt"`
}

// Request bodies.

type CreateSegnalazioneRequest struct {
	Categoria   string     `json:"categoria"`
	Descrizione string     `json:"descrizione"`
	Posizione   *Posizione `json:"posizione"`
}

type UpdateStatoRequest struct {
	Stato string `json:"stato"`
}

type UpdateCommentoRequest struct {
	Commento string `json:"commento"`
}

type UpdateGruppoRequest struct {
	GruppoSegnalazioni *int64 `json:"gruppoSegnalazioni"`
}

type CreateGruppoRequest struct {
	Nome         string  `json:"nome"`
	Segnalazioni []int64 `json:"segnalazioni"`
}

type UpdateNomeRequest struct {
	Nome string `json:"nome"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nome     string `json:"nome"`
	Cognome  string `json:"cognome"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
