package database

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/Fb1234566/TrentOnBike-api/apperrors"
	"github.com/Fb1234566/TrentOnBike-api/models"
)

func TestCreateSegnalazione(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT\\s+INTO segnalazioni (.+) VALUES (.+)").
			WithArgs("user_1", "OSTACOLO", "Ramo caduto sulla pista", models.StatoDaVerificare, false,
				11.12, 46.07, "Via Belenzani", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(42, 1))
		expectBump()
		mock.ExpectCommit()

		seg, err := service.Create(context.Background(), "user_1", &models.CreateSegnalazioneRequest{
			Categoria:   "OSTACOLO",
			Descrizione: "Ramo caduto sulla pista",
			Posizione: &models.Posizione{
				Type:        "Point",
				Coordinates: []float64{11.12, 46.07},
				Via:         "Via Belenzani",
			},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seg.ID != 42 {
			t.Errorf("Create: id = %d, want 42", seg.ID)
		}
		if seg.Stato != models.StatoDaVerificare {
			t.Errorf("Create: stato = %s, want %s", seg.Stato, models.StatoDaVerificare)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestCreateSegnalazioneValidation(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		testCases := []struct {
			name string
			req  *models.CreateSegnalazioneRequest
		}{
			{
				name: "missing description",
				req: &models.CreateSegnalazioneRequest{
					Categoria: "OSTACOLO",
					Posizione: &models.Posizione{Type: "Point", Coordinates: []float64{11.12, 46.07}},
				},
			},
			{
				name: "missing position",
				req: &models.CreateSegnalazioneRequest{
					Categoria:   "OSTACOLO",
					Descrizione: "Ramo caduto sulla pista",
				},
			},
			{
				name: "unknown category",
				req: &models.CreateSegnalazioneRequest{
					Categoria:   "BUCA",
					Descrizione: "Ramo caduto sulla pista",
					Posizione:   &models.Posizione{Type: "Point", Coordinates: []float64{11.12, 46.07}},
				},
			},
		}

		for _, tc := range testCases {
			_, err := service.Create(context.Background(), "user_1", tc.req)
			if !apperrors.IsKind(err, apperrors.KindValidation) {
				t.Errorf("%s: expected validation error, got %v", tc.name, err)
			}
		}
		// nothing may reach the database
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestSetStatoInvalid(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		_, err := service.SetStato(context.Background(), 1, "CHIUSA")
		if !apperrors.IsKind(err, apperrors.KindValidation) {
			t.Errorf("SetStato: expected validation error, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestSetStatoSingle(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM segnalazioni WHERE id = (.+) FOR UPDATE").
			WithArgs(int64(5)).
			WillReturnRows(segnalazioneRow(5, models.StatoDaVerificare, nil, 11.12, 46.07))
		mock.ExpectExec("UPDATE segnalazioni SET stato = (.+) WHERE id = (.+)").
			WithArgs(models.StatoAttiva, sqlmock.AnyArg(), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectBump()
		mock.ExpectCommit()

		res, err := service.SetStato(context.Background(), 5, models.StatoAttiva)
		if err != nil {
			t.Fatalf("SetStato: %v", err)
		}
		if res.DiGruppo {
			t.Error("SetStato: DiGruppo = true for an ungrouped report")
		}
		if res.Aggiornate != 1 {
			t.Errorf("SetStato: aggiornate = %d, want 1", res.Aggiornate)
		}
		if res.Segnalazione.Stato != models.StatoAttiva {
			t.Errorf("SetStato: stato = %s, want %s", res.Segnalazione.Stato, models.StatoAttiva)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestSetStatoCascadesToGroup(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM segnalazioni WHERE id = (.+) FOR UPDATE").
			WithArgs(int64(5)).
			WillReturnRows(segnalazioneRow(5, models.StatoAttiva, int64(7), 11.12, 46.07))
		// one bulk update for every member of group 7
		mock.ExpectExec("UPDATE segnalazioni SET stato = (.+) WHERE gruppo_id = (.+)").
			WithArgs(models.StatoRisolta, sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 3))
		expectBump()
		mock.ExpectCommit()

		res, err := service.SetStato(context.Background(), 5, models.StatoRisolta)
		if err != nil {
			t.Fatalf("SetStato: %v", err)
		}
		if !res.DiGruppo {
			t.Error("SetStato: DiGruppo = false for a grouped report")
		}
		if res.Aggiornate != 3 {
			t.Errorf("SetStato: aggiornate = %d, want 3", res.Aggiornate)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestMarkRead(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM segnalazioni WHERE id = (.+) FOR UPDATE").
			WithArgs(int64(5)).
			WillReturnRows(segnalazioneRow(5, models.StatoDaVerificare, nil, 11.12, 46.07))
		mock.ExpectExec("UPDATE segnalazioni SET letta_dal_comune = true(.+) WHERE id = (.+)").
			WithArgs(sqlmock.AnyArg(), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectBump()
		mock.ExpectCommit()

		res, err := service.MarkRead(context.Background(), 5)
		if err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
		if res.Already {
			t.Error("MarkRead: Already = true on first read")
		}
		if res.Segnalazione.LettaDalComune == nil || !*res.Segnalazione.LettaDalComune {
			t.Error("MarkRead: lettaDalComune not set")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestMarkReadIdempotent(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		rows := sqlmock.NewRows(segnalazioneTestColumns).
			AddRow(int64(5), "user_1", "OSTACOLO", "Ramo caduto sulla pista", models.StatoAttiva,
				nil, true, nil, 11.12, 46.07, nil, testTime(), testTime())

		// already read: no update and no timestamp bump
		mock.ExpectBegin()
		mock.ExpectQuery("FROM segnalazioni WHERE id = (.+) FOR UPDATE").
			WithArgs(int64(5)).
			WillReturnRows(rows)
		mock.ExpectCommit()

		res, err := service.MarkRead(context.Background(), 5)
		if err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
		if !res.Already {
			t.Error("MarkRead: Already = false on second read")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestGetSegnalazioneNotFound(t *testing.T) {
	it(func() {
		service := NewReportsService(db)

		mock.ExpectQuery("FROM segnalazioni WHERE id = (.+)").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(segnalazioneTestColumns))

		_, err := service.Get(context.Background(), 99)
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			t.Errorf("Get: expected not-found error, got %v", err)
		}
	})
}
