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
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type UsersService struct {
	db        *sql.DB
	jwtSecret []byte
}

func NewUsersService(db *sql.DB, jwtSecret string) *UsersService {
	return &UsersService{db: db, jwtSecret: []byte(jwtSecret)}
}

// Register creates a new account. The role is forced to utente; only an
// admin can promote accounts.
func (s *UsersService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, string, error) {
	if req.Email == "" || req.Password == "" || req.Nome == "" {
		return nil, "", apperrors.Validationf("Email, password e nome sono obbligatori.")
	}
	if !isValidEmail(req.Email) {
		return nil, "", apperrors.Validationf("Email non valida.")
	}

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, req.Email).Scan(&existing)
	if err == nil {
		return nil, "", apperrors.Conflictf("Utente già registrato con questa email.")
	}
	if err != sql.ErrNoRows {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		ID:        generateUserID(),
		Email:     req.Email,
		Nome:      req.Nome,
		Cognome:   req.Cognome,
		Ruolo:     models.RuoloUtente,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx, `INSERT
		INTO users (id, email, password_hash, nome, cognome, ruolo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, string(hash), user.Nome, user.Cognome, user.Ruolo, user.CreatedAt); err != nil {
		log.Errorf("Error inserting user %s: %v", user.Email, err)
		return nil, "", err
	}

	token, err := s.generateToken(user.ID, user.Ruolo)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns a signed token.
func (s *UsersService) Login(ctx context.Context, req *models.LoginRequest) (string, error) {
	if req.Email == "" || req.Password == "" {
		return "", apperrors.Validationf("Email e password sono obbligatorie.")
	}

	var (
		id    string
		hash  string
		ruolo string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash, ruolo FROM users WHERE email = ?`, req.Email).Scan(&id, &hash, &ruolo)
	if err == sql.ErrNoRows {
		return "", apperrors.Unauthorizedf("Credenziali non valide.")
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		log.Warnf("Password mismatch for user %s", id)
		return "", apperrors.Unauthorizedf("Credenziali non valide.")
	}

	return s.generateToken(id, ruolo)
}

func (s *UsersService) generateToken(userID, ruolo string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"ruolo":  ruolo,
		"exp":    now.Add(24 * time.Hour).Unix(),
		"iat":    now.Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func generateUserID() string {
	return fmt.Sprintf("user_%d", time.Now().UnixNano())
}

func isValidEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}
