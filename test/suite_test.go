package test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/2beens/fitjournal/internal"
	"github.com/2beens/fitjournal/internal/config"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/suite"
)

const (
	serverPort = 9000
	serverHost = "127.0.0.1"
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

var (
	testUsername     = "testuser"
	testPassword     = "testpass"
	testPasswordHash = "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i" // testpass
)

// Define the suite, and absorb the built-in basic suite
// functionality from testify - including a T() method which
// returns the current testing context
type IntegrationTestSuite struct {
	suite.Suite

	DB         *sql.DB
	dockerPool *dockertest.Pool
	server     *internal.Server
	httpClient *http.Client
	teardown   []func()
}

// In order for 'go test' to run this suite, we need to create
// a normal test function and pass our suite to suite.Run
func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

// runs before all tests are executed
func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	fmt.Println("setting up test suite...")

	s.teardown = make([]func(), 0)
	s.httpClient = &http.Client{Timeout: 10 * time.Second}

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	var err error
	s.dockerPool, err = dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not create new dockertest pool: %s", err)
	}
	fmt.Println("dockertest pool created")

	// uses pool to try to connect to Docker
	if err = s.dockerPool.Client.Ping(); err != nil {
		log.Fatalf("could not ping dockertest pool: %s", err)
	}
	fmt.Println("dockertest pool ping successful")

	redisPort, err := s.redisSetup()
	if err != nil {
		s.cleanup()
		log.Fatalf("failed to setup redis: %s", err.Error())
	}
	fmt.Println("redis setup successful")

	pgPort, err := s.postgresSetup()
	if err != nil {
		s.cleanup()
		log.Fatalf("failed to setup postgres: %s", err)
	}
	fmt.Println("postgres setup successful")

	cfg := getTestConfig(redisPort, pgPort)
	s.server, err = internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             "test-version-info",
			AdminUsername:           testUsername,
			AdminPasswordHash:       testPasswordHash,
			RedisPassword:           "",
			HoneycombTracingEnabled: false,
		},
	)
	if err != nil {
		s.cleanup()
		log.Fatalf("new server: %s", err)
	}
	fmt.Println("server created")

	s.server.Serve(ctx, cfg.Host, cfg.Port)
	fmt.Println("server started")
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.cleanup()
}

func (s *IntegrationTestSuite) cleanup() {
	fmt.Println(" --> cleaning up test suite...")
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			fmt.Printf(" --> test suite db close error: %s\n", err)
		}
	}
	fmt.Println(" --> test suite db closed")
	if s.server != nil {
		s.server.GracefulShutdown()
	}
	fmt.Println(" --> test suite server shut down")
	for _, teardown := range s.teardown {
		teardown()
	}
	fmt.Println(" --> test suite cleanup done")
}

func getTestConfig(redisPort, postgresPort string) *config.Config {
	return &config.Config{
		Host:                        serverHost,
		Port:                        serverPort,
		RedisHost:                   "localhost",
		RedisPort:                   redisPort,
		PostgresPort:                postgresPort,
		PostgresHost:                "localhost",
		PostgresDBName:              "fitjournal",
		LoginRateLimitAllowedPerMin: 10,
		ViewCacheTTLSeconds:         60,
	}
}

func (s *IntegrationTestSuite) redisSetup() (string, error) {
	redisResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Name:       "redis",
		Tag:        "6.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		return "", fmt.Errorf("run redis: %s", err)
	}

	s.teardown = append(s.teardown, func() {
		if err := redisResource.Close(); err != nil {
			fmt.Printf("redis teardown: %s\n", err)
		}
	})

	redisPort := redisResource.GetPort("6379/tcp")
	return redisPort, nil
}

func (s *IntegrationTestSuite) postgresSetup() (string, error) {
	pgResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "12",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=fitjournal",
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return "", fmt.Errorf("dockerpool run postgres: %s", err)
	}

	s.teardown = append(s.teardown, func() {
		if err := pgResource.Close(); err != nil {
			fmt.Printf("postgres teardown: %s\n", err)
		}
	})

	pgPort := pgResource.GetPort("5432/tcp")
	dsn := fmt.Sprintf(
		"postgres://postgres@localhost:%s/fitjournal?sslmode=disable",
		pgPort,
	)

	s.DB, err = sql.Open("postgres", dsn)
	if err != nil {
		return "", fmt.Errorf("open db conn: %w", err)
	}

	if err := s.dockerPool.Retry(func() error {
		return s.DB.Ping()
	}); err != nil {
		return "", fmt.Errorf("connect to db: %s", err)
	}

	if _, err := s.DB.Exec(initSQL); err != nil {
		return "", fmt.Errorf("run init script: %s", err)
	}

	return pgPort, nil
}

const initSQL = `
CREATE TABLE public.recipe
(
    id               uuid PRIMARY KEY,
    title            text NOT NULL,
    description      text NOT NULL DEFAULT '',
    social_media_url text,
    created_at       timestamp NOT NULL DEFAULT now()
);

CREATE TABLE public.activity
(
    id           uuid PRIMARY KEY,
    title        text NOT NULL,
    description  text,
    time_minutes double precision,
    calories     double precision,
    created_at   timestamp NOT NULL DEFAULT now()
);

CREATE TABLE public.gym_exercise
(
    id          uuid PRIMARY KEY,
    title       text NOT NULL,
    description text,
    comments    text,
    body_part   text,
    sets        double precision,
    reps        double precision,
    weight      double precision,
    created_at  timestamp NOT NULL DEFAULT now()
);

CREATE TABLE public.routine
(
    id          uuid PRIMARY KEY,
    name        text NOT NULL,
    description text,
    created_at  timestamp NOT NULL DEFAULT now()
);

CREATE TABLE public.routine_exercise
(
    id              uuid PRIMARY KEY,
    routine_id      uuid NOT NULL REFERENCES routine (id) ON DELETE CASCADE,
    gym_exercise_id uuid NOT NULL REFERENCES gym_exercise (id) ON DELETE CASCADE,
    order_index     int NOT NULL,
    sets            double precision,
    reps            double precision,
    weight          double precision,
    comments        text
);

CREATE INDEX routine_exercise_routine_id_idx ON routine_exercise (routine_id);

CREATE TABLE public.daily_statistic
(
    id                uuid PRIMARY KEY,
    day               date NOT NULL UNIQUE,
    calories_ingested double precision,
    proteins          double precision,
    carbs             double precision,
    fat               double precision,
    steps             double precision,
    created_at        timestamp NOT NULL DEFAULT now()
);

CREATE TABLE public.daily_routine_entry
(
    id                 uuid PRIMARY KEY,
    daily_statistic_id uuid NOT NULL REFERENCES daily_statistic (id) ON DELETE CASCADE,
    routine_id         uuid NOT NULL REFERENCES routine (id) ON DELETE CASCADE,
    created_at         timestamp NOT NULL DEFAULT now()
);

CREATE TABLE public.daily_routine_entry_exercise
(
    id                     uuid PRIMARY KEY,
    daily_routine_entry_id uuid NOT NULL REFERENCES daily_routine_entry (id) ON DELETE CASCADE,
    gym_exercise_id        uuid NOT NULL REFERENCES gym_exercise (id) ON DELETE CASCADE,
    order_index            int NOT NULL,
    sets                   double precision,
    reps                   double precision,
    weight                 double precision,
    comments               text
);

CREATE TABLE public.daily_activity_entry
(
    id                 uuid PRIMARY KEY,
    daily_statistic_id uuid NOT NULL REFERENCES daily_statistic (id) ON DELETE CASCADE,
    activity_id        uuid NOT NULL REFERENCES activity (id) ON DELETE CASCADE,
    time_minutes       double precision,
    calories           double precision,
    created_at         timestamp NOT NULL DEFAULT now()
);

CREATE TABLE public.daily_gym_exercise_entry
(
    id                 uuid PRIMARY KEY,
    daily_statistic_id uuid NOT NULL REFERENCES daily_statistic (id) ON DELETE CASCADE,
    gym_exercise_id    uuid NOT NULL REFERENCES gym_exercise (id) ON DELETE CASCADE,
    sets               double precision,
    reps               double precision,
    weight             double precision,
    created_at         timestamp NOT NULL DEFAULT now()
);
`
