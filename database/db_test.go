package database

import (
	"database/sql"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

var segnalazioneTestColumns = []string{
	"id", "utente", "categoria", "descrizione", "stato", "commento_operatore",
	"letta_dal_comune", "gruppo_id", "longitudine", "latitudine", "via",
	"creata_il", "ultima_modifica_il",
}

var gruppoTestColumns = []string{
	"id", "nome", "longitudine", "latitudine", "via", "creato_da",
	"creato_il", "ultima_modifica_il", "numero_segnalazioni",
}

func testTime() time.Time {
	return time.Now().UTC()
}

func segnalazioneRow(id int64, stato string, gruppoID any, lng, lat float64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(segnalazioneTestColumns).
		AddRow(id, "user_1", "OSTACOLO", "Ramo caduto sulla pista", stato,
			nil, false, gruppoID, lng, lat, nil, now, now)
}

func gruppoRow(id int64, nome string, numero int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(gruppoTestColumns).
		AddRow(id, nome, 11.12, 46.07, nil, "op_1", now, now, numero)
}

// expectBump matches the read-then-write of the lastReportsUpdate timestamp.
// The stored value is set in the past so the write always happens.
func expectBump() {
	mock.ExpectQuery("SELECT value FROM global_timestamps WHERE ts_key = (.+)").
		WithArgs(KeyLastReportsUpdate).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).
			AddRow(time.Now().UTC().Add(-time.Hour)))
	mock.ExpectExec("UPDATE global_timestamps SET value = (.+) WHERE ts_key = (.+)").
		WithArgs(sqlmock.AnyArg(), KeyLastReportsUpdate).
		WillReturnResult(sqlmock.NewResult(0, 1))
}
