package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func setupAuthConfig() {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
}

func TestAuthService_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil, testEconomy())

	t.Run("successful registration opens billing account", func(t *testing.T) {
		req := RegisterRequest{
			Email:    "player@example.com",
			Password: "password123",
			Username: "cautious_cat",
		}

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(req.Email, sqlmock.AnyArg(), req.Username).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), 10).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, req.Email, response.User.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		body, _ := json.Marshal(RegisterRequest{Email: "a@b.com", Password: "x", Username: "ab"})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil, testEconomy())

	t.Run("successful login", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, email, username, password FROM users").
			WithArgs("player@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password"}).
				AddRow(1, "player@example.com", "cautious_cat", hashedPassword))

		body, _ := json.Marshal(LoginRequest{Email: "player@example.com", Password: "password123"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, int64(1), response.User.ID)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, email, username, password FROM users").
			WithArgs("player@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password"}).
				AddRow(1, "player@example.com", "cautious_cat", hashedPassword))

		body, _ := json.Marshal(LoginRequest{Email: "player@example.com", Password: "wrong-pass"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email is rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, username, password FROM users").
			WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password"}))

		body, _ := json.Marshal(LoginRequest{Email: "ghost@example.com", Password: "password123"})
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setupAuthConfig()

	hashed, err := hashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.True(t, verifyPassword("correct horse battery staple", hashed))
	assert.False(t, verifyPassword("wrong password", hashed))
	assert.False(t, verifyPassword("anything", "not-a-valid-hash"))
}
