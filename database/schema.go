package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist
func InitSchema(db *sql.DB) error {
	log.Info("Initializing segnalazioni database schema...")

	usersTableSQL := `
	CREATE TABLE IF NOT EXISTS users(
		id VARCHAR(64) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		nome VARCHAR(255) NOT NULL,
		cognome VARCHAR(255),
		ruolo ENUM('utente', 'operatore', 'admin') NOT NULL DEFAULT 'utente',
		created_at TIMESTAMP(3) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE INDEX email_index (email)
	)`

	if _, err := db.Exec(usersTableSQL); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Info("Users table created/verified")

	gruppiTableSQL := `
	CREATE TABLE IF NOT EXISTS gruppi_segnalazioni(
		id BIGINT NOT NULL AUTO_INCREMENT,
		nome VARCHAR(255) NOT NULL,
		longitudine DOUBLE NOT NULL,
		latitudine DOUBLE NOT NULL,
		via VARCHAR(255),
		geom POINT NOT NULL SRID 4326,
		creato_da VARCHAR(64),
		creato_il TIMESTAMP(3) NOT NULL,
		ultima_modifica_il TIMESTAMP(3) NOT NULL,
		numero_segnalazioni INT NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		UNIQUE INDEX nome_index (nome),
		INDEX creato_il_index (creato_il),
		SPATIAL INDEX(geom)
	)`

	if _, err := db.Exec(gruppiTableSQL); err != nil {
		return fmt.Errorf("failed to create gruppi_segnalazioni table: %w", err)
	}
	log.Info("Gruppi_segnalazioni table created/verified")

	segnalazioniTableSQL := `
	CREATE TABLE IF NOT EXISTS segnalazioni(
		id BIGINT NOT NULL AUTO_INCREMENT,
		utente VARCHAR(64) NOT NULL,
		categoria ENUM('OSTACOLO', 'ILLUMINAZIONE_INSUFFICIENTE', 'PISTA_DANNEGGIATA', 'SEGNALAZIONE_STRADALE_MANCANTE', 'ALTRO') NOT NULL,
		descrizione TEXT,
		stato ENUM('DA_VERIFICARE', 'ATTIVA', 'RISOLTA', 'SCARTATA') NOT NULL DEFAULT 'DA_VERIFICARE',
		commento_operatore TEXT,
		letta_dal_comune BOOL NOT NULL DEFAULT false,
		gruppo_id BIGINT,
		longitudine DOUBLE NOT NULL,
		latitudine DOUBLE NOT NULL,
		via VARCHAR(255),
		geom POINT NOT NULL SRID 4326,
		creata_il TIMESTAMP(3) NOT NULL,
		ultima_modifica_il TIMESTAMP(3) NOT NULL,
		PRIMARY KEY (id),
		INDEX utente_index (utente),
		INDEX stato_index (stato),
		INDEX gruppo_id_index (gruppo_id),
		INDEX creata_il_index (creata_il),
		SPATIAL INDEX(geom)
	)`

	if _, err := db.Exec(segnalazioniTableSQL); err != nil {
		return fmt.Errorf("failed to create segnalazioni table: %w", err)
	}
	log.Info("Segnalazioni table created/verified")

	timestampsTableSQL := `
	CREATE TABLE IF NOT EXISTS global_timestamps(
		ts_key VARCHAR(64) NOT NULL,
		value TIMESTAMP(3) NOT NULL,
		PRIMARY KEY (ts_key)
	)`

	if _, err := db.Exec(timestampsTableSQL); err != nil {
		return fmt.Errorf("failed to create global_timestamps table: %w", err)
	}
	log.Info("Global_timestamps table created/verified")

	log.Info("Segnalazioni database schema initialization completed")
	return nil
}
