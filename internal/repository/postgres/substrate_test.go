package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"hermes/internal/config"
	"hermes/internal/repository"
	"hermes/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	ctx        context.Context
	connString string
}

// SetupSuite запускается один раз перед всеми тестами
func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	s.storage, err = postgres.New(s.ctx, config.DatabaseConfig{URL: s.connString, MaxConnections: 4})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.storage.Migrate(s.ctx))
}

// TearDownSuite очищает после всех тестов
func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

// SetupTest очищает таблицу перед каждым тестом
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	if err != nil {
		s.T().Logf("Не удалось подключиться для очистки: %v", err)
		return
	}
	defer conn.Close(s.ctx)

	if _, err := conn.Exec(s.ctx, "DELETE FROM kv_store"); err != nil {
		s.T().Logf("Не удалось очистить таблицу: %v", err)
	}
}

// TestPostgresTestSuite запускает suite
func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) TestStorage_HealthCheck() {
	assert.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

func (s *PostgresTestSuite) TestStorage_MigrateIsIdempotent() {
	assert.NoError(s.T(), s.storage.Migrate(s.ctx))
}

func (s *PostgresTestSuite) TestStorage_SetGetRemove() {
	_, err := s.storage.Get(s.ctx, "hermes_tasks_u1")
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	require.NoError(s.T(), s.storage.Set(s.ctx, "hermes_tasks_u1", `[{"title":"a"}]`))
	require.NoError(s.T(), s.storage.Set(s.ctx, "hermes_tasks_u1", `[{"title":"b"}]`))

	value, err := s.storage.Get(s.ctx, "hermes_tasks_u1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), `[{"title":"b"}]`, value)

	require.NoError(s.T(), s.storage.Remove(s.ctx, "hermes_tasks_u1"))
	_, err = s.storage.Get(s.ctx, "hermes_tasks_u1")
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_KeysKeepInsertionOrder() {
	for _, key := range []string{"hermes_projects_b", "hermes_projects_a", "other_key"} {
		require.NoError(s.T(), s.storage.Set(s.ctx, key, "[]"))
	}
	// обновление не двигает ключ в конец
	require.NoError(s.T(), s.storage.Set(s.ctx, "hermes_projects_b", "[1]"))

	keys, err := s.storage.Keys(s.ctx, "hermes_")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"hermes_projects_b", "hermes_projects_a"}, keys)
}

func (s *PostgresTestSuite) TestStorage_Apply() {
	require.NoError(s.T(), s.storage.Set(s.ctx, "gone", "x"))

	err := s.storage.Apply(s.ctx, []repository.Write{
		{Key: "one", Value: "1"},
		{Key: "two", Value: "2"},
		{Key: "gone", Delete: true},
	})
	require.NoError(s.T(), err)

	keys, err := s.storage.Keys(s.ctx, "")
	require.NoError(s.T(), err)
	assert.ElementsMatch(s.T(), []string{"one", "two"}, keys)
}
