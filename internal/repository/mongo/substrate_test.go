package mongo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"hermes/internal/repository"
	"hermes/internal/repository/mongo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type MongoTestSuite struct {
	suite.Suite
	container testcontainers.Container
	substrate *mongo.Substrate
	ctx       context.Context
}

func (s *MongoTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "27017")
	require.NoError(s.T(), err)

	s.substrate, err = mongo.New(s.ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "hermes_test")
	require.NoError(s.T(), err)
}

func (s *MongoTestSuite) TearDownSuite() {
	if s.substrate != nil {
		s.substrate.Close(s.ctx)
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

func TestMongoTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(MongoTestSuite))
}

func (s *MongoTestSuite) TestSubstrate_CRUD() {
	require.NoError(s.T(), s.substrate.HealthCheck(s.ctx))

	_, err := s.substrate.Get(s.ctx, "hermes_tasks_x")
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	require.NoError(s.T(), s.substrate.Set(s.ctx, "hermes_tasks_x", "[1]"))
	require.NoError(s.T(), s.substrate.Set(s.ctx, "hermes_tasks_x", "[2]"))

	value, err := s.substrate.Get(s.ctx, "hermes_tasks_x")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "[2]", value)

	require.NoError(s.T(), s.substrate.Remove(s.ctx, "hermes_tasks_x"))
	_, err = s.substrate.Get(s.ctx, "hermes_tasks_x")
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *MongoTestSuite) TestSubstrate_KeysByPrefix() {
	require.NoError(s.T(), s.substrate.Set(s.ctx, "p.k_first", "[]"))
	require.NoError(s.T(), s.substrate.Set(s.ctx, "p.k_second", "[]"))
	require.NoError(s.T(), s.substrate.Set(s.ctx, "pxk_other", "[]"))

	keys, err := s.substrate.Keys(s.ctx, "p.k_")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"p.k_first", "p.k_second"}, keys)
}
