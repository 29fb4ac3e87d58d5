// Package testutil holds helpers shared by the shop's handler, repository
// and integration tests.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a postgres-dialect GORM handle backed by sqlmock
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a MockDB that is closed when the test ends
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err, "sqlmock")
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(
		postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err, "open gorm on sqlmock")

	return &MockDB{DB: db, Mock: mock, SqlDB: conn}
}

// ExpectationsWereMet fails the test on unmet or unexpected queries
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "database expectations")
}

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// TestUserID is the customer used across handler tests
func TestUserID() uuid.UUID { return NewTestUUID("test-user") }

// TestAdminID is the administrator used across handler tests
func TestAdminID() uuid.UUID { return NewTestUUID("test-admin") }

// AsUser stands in for the JWT middleware: it stores the claims and
// identity keys the real middleware would have resolved for id
func AsUser(id uuid.UUID, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{
			UserID:    id.String(),
			Email:     "jana@example.cz",
			IsAdmin:   admin,
			TokenType: auth.TokenTypeAccess,
		}
		c.Set(middleware.JWTClaimsKey, claims)
		c.Set(middleware.JWTUserIDKey, claims.UserID)
		c.Set(middleware.JWTEmailKey, claims.Email)
		c.Set(middleware.JWTIsAdminKey, admin)
		c.Next()
	}
}
