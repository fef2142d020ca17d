package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Fb1234566/TrentOnBike-api/apperrors"
	"github.com/Fb1234566/TrentOnBike-api/models"

	"github.com/apex/log"
	geojson "github.com/paulmach/go.geojson"
)

const segnalazioneColumns = `id, utente, categoria, descrizione, stato, commento_operatore,
		letta_dal_comune, gruppo_id, longitudine, latitudine, via, creata_il, ultima_modifica_il`

type ReportsService struct {
	db *sql.DB
}

func NewReportsService(db *sql.DB) *ReportsService {
	return &ReportsService{db: db}
}

// Create persists a new citizen report. Status always starts at
// DA_VERIFICARE regardless of the request.
func (s *ReportsService) Create(ctx context.Context, utente string, req *models.CreateSegnalazioneRequest) (*models.Segnalazione, error) {
	if req.Categoria == "" || req.Descrizione == "" || !req.Posizione.Valid() {
		return nil, apperrors.Validationf("Dati mancanti o incompleti.")
	}
	if !models.IsValidCategoria(req.Categoria) {
		return nil, apperrors.Validationf("Categoria non valida.")
	}

	lng, lat := req.Posizione.Longitudine(), req.Posizione.Latitudine()
	point, err := geojson.NewPointGeometry([]float64{lng, lat}).MarshalJSON()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `INSERT
		INTO segnalazioni (utente, categoria, descrizione, stato, letta_dal_comune,
			longitudine, latitudine, via, geom, creata_il, ultima_modifica_il)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ST_GeomFromGeoJSON(?), ?, ?)`,
		utente, req.Categoria, req.Descrizione, models.StatoDaVerificare, false,
		lng, lat, nullString(req.Posizione.Via), string(point), now, now)
	if err != nil {
		log.Errorf("Error inserting segnalazione for user %s: %v", utente, err)
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	letta := false
	return &models.Segnalazione{
		ID:               id,
		Utente:           utente,
		Posizione:        models.Posizione{Type: "Point", Coordinates: []float64{lng, lat}, Via: req.Posizione.Via},
		Categoria:        req.Categoria,
		Descrizione:      req.Descrizione,
		Stato:            models.StatoDaVerificare,
		LettaDalComune:   &letta,
		CreataIl:         now,
		UltimaModificaIl: now,
	}, nil
}

// List returns reports matching the given filters. An empty match is an
// empty list, never an error.
func (s *ReportsService) List(ctx context.Context, f *ReportFilters) ([]*models.Segnalazione, error) {
	where := []string{}
	params := []any{}

	appendInClause(&where, &params, "stato", f.Stati)
	appendInClause(&where, &params, "categoria", f.Categorie)
	appendDateRange(&where, &params, "creata_il", f.DaData, f.AData)
	if f.LettaDalComune != nil {
		where = append(where, "letta_dal_comune = ?")
		params = append(params, *f.LettaDalComune)
	}
	if f.InGruppo != nil {
		if *f.InGruppo {
			where = append(where, "gruppo_id IS NOT NULL")
		} else {
			where = append(where, "gruppo_id IS NULL")
		}
	}
	if f.Via != "" {
		where = append(where, "via = ?")
		params = append(params, f.Via)
	}
	if f.Geo != nil {
		if err := appendGeoClause(&where, &params, f.Geo); err != nil {
			return nil, err
		}
	}

	sqlStr := "SELECT " + segnalazioneColumns + " FROM segnalazioni"
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += orderAndLimit(f.Ordine, f.Direction, f.Limit, "creata_il")

	rows, err := s.db.QueryContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*models.Segnalazione{}
	for rows.Next() {
		seg, err := scanSegnalazione(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, seg)
	}
	return res, rows.Err()
}

// ListMine returns the caller's own reports. Utente and LettaDalComune are
// internal to operators and withheld from the response.
func (s *ReportsService) ListMine(ctx context.Context, utente string, f *ReportFilters) ([]*models.Segnalazione, error) {
	where := []string{"utente = ?"}
	params := []any{utente}

	appendInClause(&where, &params, "stato", f.Stati)
	appendInClause(&where, &params, "categoria", f.Categorie)
	appendDateRange(&where, &params, "creata_il", f.DaData, f.AData)

	sqlStr := "SELECT " + segnalazioneColumns + " FROM segnalazioni WHERE " +
		strings.Join(where, " AND ") +
		orderAndLimit(f.Ordine, f.Direction, f.Limit, "creata_il")

	rows, err := s.db.QueryContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*models.Segnalazione{}
	for rows.Next() {
		seg, err := scanSegnalazione(rows)
		if err != nil {
			return nil, err
		}
		seg.Utente = ""
		seg.LettaDalComune = nil
		res = append(res, seg)
	}
	return res, rows.Err()
}

// Get returns one report by id.
func (s *ReportsService) Get(ctx context.Context, id int64) (*models.Segnalazione, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+segnalazioneColumns+" FROM segnalazioni WHERE id = ?", id)
	seg, err := scanSegnalazione(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("Segnalazione non trovata.")
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// SetCommento sets the operator comment on a report.
func (s *ReportsService) SetCommento(ctx context.Context, id int64, commento string) (*models.Segnalazione, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seg, err := lockSegnalazione(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE segnalazioni SET commento_operatore = ?, ultima_modifica_il = ? WHERE id = ?`,
		commento, now, id); err != nil {
		return nil, err
	}
	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	seg.CommentoOperatore = commento
	seg.UltimaModificaIl = now
	return seg, nil
}

// StatoUpdateResult reports the outcome of a status change.
type StatoUpdateResult struct {
	Segnalazione *models.Segnalazione
	Aggiornate   int64
	DiGruppo     bool
	Message      string
}

// SetStato changes the status of a report. A group represents one physical
// problem, so for a grouped report the operator's verdict is applied to every
// member in one bulk update, bypassing the attach-time compatibility check.
func (s *ReportsService) SetStato(ctx context.Context, id int64, stato string) (*StatoUpdateResult, error) {
	if !models.IsValidStato(stato) {
		return nil, apperrors.Validationf("Stato non valido")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seg, err := lockSegnalazione(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res := &StatoUpdateResult{}
	if seg.GruppoSegnalazioni != nil {
		result, err := tx.ExecContext(ctx,
			`UPDATE segnalazioni SET stato = ?, ultima_modifica_il = ? WHERE gruppo_id = ?`,
			stato, now, *seg.GruppoSegnalazioni)
		if err != nil {
			return nil, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		res.Aggiornate = n
		res.DiGruppo = true
		res.Message = fmt.Sprintf("Stato aggiornato a '%s' per tutte le segnalazioni del gruppo", stato)
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE segnalazioni SET stato = ?, ultima_modifica_il = ? WHERE id = ?`,
			stato, now, id); err != nil {
			return nil, err
		}
		res.Aggiornate = 1
		res.Message = fmt.Sprintf("Stato aggiornato a '%s' per la segnalazione", stato)
	}

	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	seg.Stato = stato
	seg.UltimaModificaIl = now
	res.Segnalazione = seg
	return res, nil
}

// ReadResult reports the outcome of marking a report as read.
type ReadResult struct {
	Segnalazione *models.Segnalazione
	Already      bool
}

// MarkRead sets the read-by-authority flag. The operation is idempotent: a
// second call leaves the report untouched, including ultima_modifica_il.
func (s *ReportsService) MarkRead(ctx context.Context, id int64) (*ReadResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seg, err := lockSegnalazione(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if seg.LettaDalComune != nil && *seg.LettaDalComune {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &ReadResult{Segnalazione: seg, Already: true}, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE segnalazioni SET letta_dal_comune = true, ultima_modifica_il = ? WHERE id = ?`,
		now, id); err != nil {
		return nil, err
	}
	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	letta := true
	seg.LettaDalComune = &letta
	seg.UltimaModificaIl = now
	return &ReadResult{Segnalazione: seg}, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSegnalazione(sc scanner) (*models.Segnalazione, error) {
	var (
		seg      models.Segnalazione
		commento sql.NullString
		letta    bool
		gruppo   sql.NullInt64
		lng, lat float64
		via      sql.NullString
	)
	if err := sc.Scan(&seg.ID, &seg.Utente, &seg.Categoria, &seg.Descrizione, &seg.Stato,
		&commento, &letta, &gruppo, &lng, &lat, &via, &seg.CreataIl, &seg.UltimaModificaIl); err != nil {
		return nil, err
	}
	seg.CommentoOperatore = commento.String
	seg.LettaDalComune = &letta
	if gruppo.Valid {
		seg.GruppoSegnalazioni = &gruppo.Int64
	}
	seg.Posizione = models.Posizione{Type: "Point", Coordinates: []float64{lng, lat}, Via: via.String}
	return &seg, nil
}

// lockSegnalazione fetches one report inside tx with a row lock, so that
// concurrent group or status mutations on the same report serialize.
func lockSegnalazione(ctx context.Context, tx *sql.Tx, id int64) (*models.Segnalazione, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+segnalazioneColumns+" FROM segnalazioni WHERE id = ? FOR UPDATE", id)
	seg, err := scanSegnalazione(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("Segnalazione non trovata")
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
