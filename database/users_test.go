package database

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Fb1234566/TrentOnBike-api/apperrors"
	"github.com/Fb1234566/TrentOnBike-api/models"
)

const testJWTSecret = "test_secret"

func TestRegister(t *testing.T) {
	it(func() {
		service := NewUsersService(db, testJWTSecret)

		mock.ExpectQuery("SELECT id FROM users WHERE email = (.+)").
			WithArgs("mario@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT\\s+INTO users (.+) VALUES (.+)").
			WithArgs(sqlmock.AnyArg(), "mario@example.com", sqlmock.AnyArg(),
				"Mario", "Rossi", models.RuoloUtente, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		user, token, err := service.Register(context.Background(), &models.RegisterRequest{
			Email:    "mario@example.com",
			Password: "password123",
			Nome:     "Mario",
			Cognome:  "Rossi",
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if user.Ruolo != models.RuoloUtente {
			t.Errorf("Register: ruolo = %s, want %s", user.Ruolo, models.RuoloUtente)
		}

		parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
			return []byte(testJWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			t.Fatalf("Register: returned token does not verify: %v", err)
		}
		claims := parsed.Claims.(jwt.MapClaims)
		if claims["ruolo"] != models.RuoloUtente {
			t.Errorf("Register: token ruolo = %v, want %s", claims["ruolo"], models.RuoloUtente)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestRegisterValidation(t *testing.T) {
	it(func() {
		service := NewUsersService(db, testJWTSecret)

		testCases := []struct {
			name string
			req  *models.RegisterRequest
		}{
			{
				name: "missing password",
				req:  &models.RegisterRequest{Email: "mario@example.com", Nome: "Mario"},
			},
			{
				name: "invalid email",
				req:  &models.RegisterRequest{Email: "mario", Password: "password123", Nome: "Mario"},
			},
		}

		for _, tc := range testCases {
			_, _, err := service.Register(context.Background(), tc.req)
			if !apperrors.IsKind(err, apperrors.KindValidation) {
				t.Errorf("%s: expected validation error, got %v", tc.name, err)
			}
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})
}

func TestRegisterDuplicateEmail(t *testing.T) {
	it(func() {
		service := NewUsersService(db, testJWTSecret)

		mock.ExpectQuery("SELECT id FROM users WHERE email = (.+)").
			WithArgs("mario@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user_1"))

		_, _, err := service.Register(context.Background(), &models.RegisterRequest{
			Email:    "mario@example.com",
			Password: "password123",
			Nome:     "Mario",
		})
		if !apperrors.IsKind(err, apperrors.KindConflict) {
			t.Errorf("Register: expected conflict error, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	it(func() {
		service := NewUsersService(db, testJWTSecret)
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hashing password: %v", err)
		}

		mock.ExpectQuery("SELECT id, password_hash, ruolo FROM users WHERE email = (.+)").
			WithArgs("mario@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash", "ruolo"}).
				AddRow("user_1", string(hash), "operatore"))

		token, err := service.Login(context.Background(), &models.LoginRequest{
			Email:    "mario@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if token == "" {
			t.Error("Login: empty token")
		}
	})
}

func TestLoginWrongPassword(t *testing.T) {
	it(func() {
		service := NewUsersService(db, testJWTSecret)
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hashing password: %v", err)
		}

		mock.ExpectQuery("SELECT id, password_hash, ruolo FROM users WHERE email = (.+)").
			WithArgs("mario@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash", "ruolo"}).
				AddRow("user_1", string(hash), "utente"))

		_, err = service.Login(context.Background(), &models.LoginRequest{
			Email:    "mario@example.com",
			Password: "wrong",
		})
		if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
			t.Errorf("Login: expected unauthorized error, got %v", err)
		}
	})
}

func TestLoginUnknownEmail(t *testing.T) {
	it(func() {
		service := NewUsersService(db, testJWTSecret)

		mock.ExpectQuery("SELECT id, password_hash, ruolo FROM users WHERE email = (.+)").
			WithArgs("nessuno@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash", "ruolo"}))

		_, err := service.Login(context.Background(), &models.LoginRequest{
			Email:    "nessuno@example.com",
			Password: "password123",
		})
		if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
			t.Errorf("Login: expected unauthorized error, got %v", err)
		}
	})
}
