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

const gruppoColumns = `id, nome, longitudine, latitudine, via, creato_da, creato_il,
		ultima_modifica_il, numero_segnalazioni`

type GroupsService struct {
	db *sql.DB
}

func NewGroupsService(db *sql.DB) *GroupsService {
	return &GroupsService{db: db}
}

// Create builds a new group from the given reports, checking their statuses
// for compatibility and promoting DA_VERIFICARE members to ATTIVA when mixed
// with ATTIVA ones. The group position is the arithmetic mean of the member
// positions and is not recomputed on later membership changes.
func (s *GroupsService) Create(ctx context.Context, creatoDa string, req *models.CreateGruppoRequest) (*models.GruppoSegnalazioni, error) {
	ids := dedupeIDs(req.Segnalazioni)
	if len(ids) == 0 {
		return nil, apperrors.Validationf("Devono essere forniti almeno una segnalazione")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	found, err := lockSegnalazioni(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		missing := []string{}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, fmt.Sprintf("%d", id))
			}
		}
		return nil, apperrors.NotFoundf("Segnalazioni non trovate: %s", strings.Join(missing, ", "))
	}

	stati := make([]string, 0, len(ids))
	for _, id := range ids {
		stati = append(stati, found[id].Stato)
	}
	decision := models.CanMerge(stati)
	if !decision.Compatible {
		return nil, apperrors.Conflictf(
			"Le segnalazioni devono essere tutte nello stesso stato, oppure un misto tra DA_VERIFICARE e ATTIVE")
	}

	var lng, lat float64
	for _, id := range ids {
		lng += found[id].Posizione.Longitudine()
		lat += found[id].Posizione.Latitudine()
	}
	lng /= float64(len(ids))
	lat /= float64(len(ids))

	now := time.Now().UTC()
	nome := req.Nome
	if nome != "" {
		var existing int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM gruppi_segnalazioni WHERE nome = ?`, nome).Scan(&existing)
		if err == nil {
			return nil, apperrors.Conflictf("Esiste già un gruppo con questo nome")
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	} else {
		prima := found[ids[0]]
		nome = synthesizeNome(prima.Categoria, lng, lat, prima.CreataIl)
	}

	point, err := geojson.NewPointGeometry([]float64{lng, lat}).MarshalJSON()
	if err != nil {
		return nil, err
	}
	result, err := tx.ExecContext(ctx, `INSERT
		INTO gruppi_segnalazioni (nome, longitudine, latitudine, geom, creato_da,
			creato_il, ultima_modifica_il, numero_segnalazioni)
		VALUES (?, ?, ?, ST_GeomFromGeoJSON(?), ?, ?, ?, ?)`,
		nome, lng, lat, string(point), creatoDa, now, now, len(ids))
	if err != nil {
		log.Errorf("Error inserting gruppo %q: %v", nome, err)
		return nil, err
	}
	gruppoID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	set := "gruppo_id = ?, ultima_modifica_il = ?"
	params := []any{gruppoID, now}
	if decision.PromoteAttiva {
		set += ", stato = ?"
		params = append(params, models.StatoAttiva)
	}
	qp := make([]string, len(ids))
	for i, id := range ids {
		qp[i] = "?"
		params = append(params, id)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE segnalazioni SET %s WHERE id IN(%s)`, set, strings.Join(qp, ",")), params...); err != nil {
		return nil, err
	}

	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.GruppoSegnalazioni{
		ID:                 gruppoID,
		Nome:               nome,
		Posizione:          models.Posizione{Type: "Point", Coordinates: []float64{lng, lat}},
		CreatoDa:           creatoDa,
		CreatoIl:           now,
		UltimaModificaIl:   now,
		NumeroSegnalazioni: len(ids),
	}, nil
}

// List returns groups matching the given filters.
func (s *GroupsService) List(ctx context.Context, f *GroupFilters) ([]*models.GruppoSegnalazioni, error) {
	where := []string{}
	params := []any{}

	appendDateRange(&where, &params, "creato_il", f.DaData, f.AData)
	if f.NumeroSegnalazioni != nil {
		where = append(where, "numero_segnalazioni = ?")
		params = append(params, *f.NumeroSegnalazioni)
	}
	if f.NumeroSegnalazioniMin != nil {
		where = append(where, "numero_segnalazioni >= ?")
		params = append(params, *f.NumeroSegnalazioniMin)
	}
	if f.NumeroSegnalazioniMax != nil {
		where = append(where, "numero_segnalazioni <= ?")
		params = append(params, *f.NumeroSegnalazioniMax)
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

	sqlStr := "SELECT " + gruppoColumns + " FROM gruppi_segnalazioni"
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += orderAndLimit(f.Ordine, f.Direction, f.Limit, "ultima_modifica_il")

	rows, err := s.db.QueryContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*models.GruppoSegnalazioni{}
	for rows.Next() {
		gruppo, err := scanGruppo(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, gruppo)
	}
	return res, rows.Err()
}

// Get returns one group by id.
func (s *GroupsService) Get(ctx context.Context, id int64) (*models.GruppoSegnalazioni, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+gruppoColumns+" FROM gruppi_segnalazioni WHERE id = ?", id)
	gruppo, err := scanGruppo(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("Gruppo non trovato")
	}
	if err != nil {
		return nil, err
	}
	return gruppo, nil
}

// Rename sets a new group name, or synthesizes one from a member when the
// request carries no name.
func (s *GroupsService) Rename(ctx context.Context, id int64, nome string) (*models.GruppoSegnalazioni, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	gruppo, err := lockGruppo(ctx, tx, id, "GruppoSegnalazioni non trovato")
	if err != nil {
		return nil, err
	}

	if nome != "" {
		var other int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM gruppi_segnalazioni WHERE nome = ? AND id <> ?`, nome, id).Scan(&other)
		if err == nil {
			return nil, apperrors.Conflictf("Esiste già un gruppo con questo nome")
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	} else {
		var categoria string
		err := tx.QueryRowContext(ctx,
			`SELECT categoria FROM segnalazioni WHERE gruppo_id = ? LIMIT 1`, id).Scan(&categoria)
		if err == sql.ErrNoRows {
			return nil, apperrors.Conflictf("Impossibile generare un nome: il gruppo non contiene segnalazioni")
		}
		if err != nil {
			return nil, err
		}
		nome = synthesizeNome(categoria, gruppo.Posizione.Longitudine(), gruppo.Posizione.Latitudine(), gruppo.CreatoIl)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE gruppi_segnalazioni SET nome = ?, ultima_modifica_il = ? WHERE id = ?`,
		nome, now, id); err != nil {
		return nil, err
	}
	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	gruppo.Nome = nome
	gruppo.UltimaModificaIl = now
	return gruppo, nil
}

// AttachResult reports the outcome of attaching a report to a group.
type AttachResult struct {
	OldGroupDeleted bool
	Message         string
}

// Attach moves a report into a group. The target group's status is read from
// one representative member; a DA_VERIFICARE report joining an ATTIVA group
// is promoted. Leaving a previous group decrements its count and deletes it
// when it empties.
func (s *GroupsService) Attach(ctx context.Context, reportID, gruppoID int64) (*AttachResult, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seg, err := lockSegnalazione(ctx, tx, reportID)
	if err != nil {
		return nil, err
	}
	if _, err := lockGruppo(ctx, tx, gruppoID, "Gruppo non trovato"); err != nil {
		return nil, err
	}
	if seg.GruppoSegnalazioni != nil && *seg.GruppoSegnalazioni == gruppoID {
		return nil, apperrors.Conflictf("La segnalazione fa già parte di questo gruppo")
	}

	var statoGruppo string
	err = tx.QueryRowContext(ctx,
		`SELECT stato FROM segnalazioni WHERE gruppo_id = ? AND id <> ? LIMIT 1`,
		gruppoID, reportID).Scan(&statoGruppo)
	if err == sql.ErrNoRows {
		log.Warnf("Gruppo %d has a positive count but no members", gruppoID)
		return nil, apperrors.Integrityf("Gruppo inconsistente: nessuna segnalazione associata")
	}
	if err != nil {
		return nil, err
	}

	decision := models.CanAttachSingle(seg.Stato, statoGruppo)
	if !decision.Allowed {
		return nil, apperrors.Conflictf("Stato non compatibile: la segnalazione è '%s', il gruppo è '%s'",
			seg.Stato, statoGruppo)
	}

	now := time.Now().UTC()
	res := &AttachResult{Message: "Segnalazione aggiunta al gruppo con successo"}
	if seg.GruppoSegnalazioni != nil {
		deleted, err := leaveGruppo(ctx, tx, *seg.GruppoSegnalazioni, now)
		if err != nil {
			return nil, err
		}
		if deleted {
			res.OldGroupDeleted = true
			res.Message = "Segnalazione aggiunta al gruppo con successo. Il gruppo precedente è stato eliminato perché vuoto."
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE segnalazioni SET gruppo_id = ?, stato = ?, ultima_modifica_il = ? WHERE id = ?`,
		gruppoID, decision.ResultingStato, now, reportID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE gruppi_segnalazioni SET numero_segnalazioni = numero_segnalazioni + 1, ultima_modifica_il = ? WHERE id = ?`,
		now, gruppoID); err != nil {
		return nil, err
	}

	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// DetachResult reports the outcome of detaching a report from its group.
type DetachResult struct {
	GroupDeleted bool
	Message      string
}

// Detach removes a report from its group, deleting the group when it was the
// last member. A group is never left persisted with zero members.
func (s *GroupsService) Detach(ctx context.Context, reportID int64) (*DetachResult, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seg, err := lockSegnalazione(ctx, tx, reportID)
	if err != nil {
		return nil, err
	}
	if seg.GruppoSegnalazioni == nil {
		return nil, apperrors.Conflictf("La segnalazione non fa parte di alcun gruppo")
	}
	gruppoID := *seg.GruppoSegnalazioni
	if _, err := lockGruppo(ctx, tx, gruppoID, "Gruppo non trovato"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE segnalazioni SET gruppo_id = NULL, ultima_modifica_il = ? WHERE id = ?`,
		now, reportID); err != nil {
		return nil, err
	}

	deleted, err := leaveGruppo(ctx, tx, gruppoID, now)
	if err != nil {
		return nil, err
	}

	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	res := &DetachResult{GroupDeleted: deleted, Message: "Segnalazione rimossa dal gruppo"}
	if deleted {
		res.Message = "Segnalazione rimossa dal gruppo. Il gruppo è stato eliminato perché vuoto."
	}
	return res, nil
}

// Delete removes a group after detaching every member report.
func (s *GroupsService) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := lockGruppo(ctx, tx, id, "Gruppo non trovato"); err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE segnalazioni SET gruppo_id = NULL, ultima_modifica_il = ? WHERE gruppo_id = ?`,
		now, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM gruppi_segnalazioni WHERE id = ?`, id); err != nil {
		return err
	}

	if _, err := bumpGlobalTimestamp(ctx, tx, KeyLastReportsUpdate); err != nil {
		return err
	}
	return tx.Commit()
}

// leaveGruppo decrements a group's member count after one report left it.
// When the count reaches zero the group is deleted instead; a persisted group
// always has at least one member.
func leaveGruppo(ctx context.Context, tx *sql.Tx, gruppoID int64, now time.Time) (deleted bool, err error) {
	var numero int
	err = tx.QueryRowContext(ctx,
		`SELECT numero_segnalazioni FROM gruppi_segnalazioni WHERE id = ? FOR UPDATE`,
		gruppoID).Scan(&numero)
	if err == sql.ErrNoRows {
		return false, apperrors.NotFoundf("Gruppo non trovato")
	}
	if err != nil {
		return false, err
	}

	if numero <= 1 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM gruppi_segnalazioni WHERE id = ?`, gruppoID); err != nil {
			return false, err
		}
		return true, nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE gruppi_segnalazioni SET numero_segnalazioni = numero_segnalazioni - 1, ultima_modifica_il = ? WHERE id = ?`,
		now, gruppoID); err != nil {
		return false, err
	}
	return false, nil
}

func lockGruppo(ctx context.Context, tx *sql.Tx, id int64, notFoundMsg string) (*models.GruppoSegnalazioni, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+gruppoColumns+" FROM gruppi_segnalazioni WHERE id = ? FOR UPDATE", id)
	gruppo, err := scanGruppo(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("%s", notFoundMsg)
	}
	if err != nil {
		return nil, err
	}
	return gruppo, nil
}

func lockSegnalazioni(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Segnalazione, error) {
	qp := make([]string, len(ids))
	params := make([]any, len(ids))
	for i, id := range ids {
		qp[i] = "?"
		params[i] = id
	}
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM segnalazioni WHERE id IN(%s) FOR UPDATE",
		segnalazioneColumns, strings.Join(qp, ",")), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := map[int64]*models.Segnalazione{}
	for rows.Next() {
		seg, err := scanSegnalazione(rows)
		if err != nil {
			return nil, err
		}
		found[seg.ID] = seg
	}
	return found, rows.Err()
}

func scanGruppo(sc scanner) (*models.GruppoSegnalazioni, error) {
	var (
		gruppo   models.GruppoSegnalazioni
		lng, lat float64
		via      sql.NullString
		creatoDa sql.NullString
	)
	if err := sc.Scan(&gruppo.ID, &gruppo.Nome, &lng, &lat, &via, &creatoDa,
		&gruppo.CreatoIl, &gruppo.UltimaModificaIl, &gruppo.NumeroSegnalazioni); err != nil {
		return nil, err
	}
	gruppo.CreatoDa = creatoDa.String
	gruppo.Posizione = models.Posizione{Type: "Point", Coordinates: []float64{lng, lat}, Via: via.String}
	return &gruppo, nil
}

// synthesizeNome builds an auto-generated group name. The millisecond suffix
// makes collisions unlikely without a uniqueness check.
func synthesizeNome(categoria string, lng, lat float64, dataSegnalazione time.Time) string {
	return fmt.Sprintf("%s_%.4f_%.4f_%s_%d",
		categoria, lng, lat, dataSegnalazione.Format("2006-01-02"), time.Now().UnixMilli())
}

func dedupeIDs(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := []int64{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
