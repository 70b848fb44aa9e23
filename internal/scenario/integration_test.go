//go:build integration

package scenario

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labtiva/esprobe/internal/config"
	"github.com/labtiva/esprobe/internal/es"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const esImage = "docker.elastic.co/elasticsearch/elasticsearch:8.15.3"

// startContainer runs a single-node cluster and returns its URL.
func startContainer(ctx context.Context) (string, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        esImage,
		ExposedPorts: []string{"9200/tcp"},
		Env: map[string]string{
			"discovery.type":                  "single-node",
			"ELASTIC_PASSWORD":                config.DefaultPassword,
			"xpack.security.enabled":          "true",
			"xpack.security.http.ssl.enabled": "false",
			"ES_JAVA_OPTS":                    "-Xms512m -Xmx512m",
		},
		WaitingFor: wait.ForHTTP("/").
			WithPort("9200/tcp").
			WithBasicAuth(config.DefaultUsername, config.DefaultPassword).
			WithStartupTimeout(3 * time.Minute),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, err
	}
	endpoint, err := c.PortEndpoint(ctx, "9200/tcp", "http")
	if err != nil {
		_ = c.Terminate(ctx)
		return "", nil, err
	}
	return endpoint, func() { _ = c.Terminate(context.Background()) }, nil
}

// waitForCluster polls cluster health until it answers or the budget runs out.
func waitForCluster(ctx context.Context, store es.Store) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), ctx)
	return backoff.Retry(func() error {
		_, err := store.Health(ctx)
		return err
	}, b)
}

type DriverSuite struct {
	suite.Suite
	driver string
	cfg    *config.Config
	store  es.Store
	runner *Runner
}

func (s *DriverSuite) SetupTest() {
	cfg := s.cfg.WithDriver(s.driver)
	store, err := es.Open(cfg)
	s.Require().NoError(err)

	if err := waitForCluster(context.Background(), store); err != nil {
		store.Close()
		s.T().Skipf("cluster at %s not reachable: %v", cfg.MaskedURL(), err)
	}
	s.store = store
	s.runner = NewRunner(store, zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("driver", s.driver).Logger())
}

func (s *DriverSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
}

func (s *DriverSuite) TestClusterHealth() {
	res := s.runner.ClusterHealth(context.Background())
	s.Require().NoError(res.Err)
}

func (s *DriverSuite) TestCreateAndDeleteIndex() {
	res := s.runner.IndexLifecycle(context.Background())
	s.Require().NoError(res.Err)
}

func (s *DriverSuite) TestCreateAndDeleteDocument() {
	res := s.runner.DocumentLifecycle(context.Background())
	s.Require().NoError(res.Err)
}

func TestIntegration(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	if os.Getenv("ES_TESTCONTAINERS") == "1" {
		ctx := context.Background()
		url, stop, err := startContainer(ctx)
		if err != nil {
			t.Fatalf("starting container: %v", err)
		}
		defer stop()
		cfg.Host = url
		cfg.Username = config.DefaultUsername
		cfg.Password = config.DefaultPassword
	}

	for _, driver := range config.Drivers {
		t.Run(fmt.Sprintf("driver=%s", driver), func(t *testing.T) {
			suite.Run(t, &DriverSuite{driver: driver, cfg: cfg})
		})
	}
}
