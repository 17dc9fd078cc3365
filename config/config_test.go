package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aciila/go-ddd-boilerplate/internal/transport"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("PORT", "")
	t.Setenv("ENABLE_WEBSOCKET", "")
	t.Setenv("ENABLE_GRPC", "")

	cfg := Load()
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.MailSendEnabled)
	assert.Equal(t, []transport.Spec{{Kind: transport.KindHTTP, Addr: ":8080"}}, cfg.Transports())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_ENABLED", "yes-please")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test, ,http://b.test ")

	cfg := Load()
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.EqualValues(t, 25, cfg.DBMaxConns)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.RateLimitEnabled, "invalid booleans fall back to the default")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

func TestTransports(t *testing.T) {
	t.Setenv("PORT", "8000")
	t.Setenv("ENABLE_WEBSOCKET", "true")
	t.Setenv("WEBSOCKET_PORT", "8001")
	t.Setenv("ENABLE_GRPC", "true")
	t.Setenv("GRPC_PORT", "8002")

	cfg := Load()
	assert.Equal(t, []transport.Spec{
		{Kind: transport.KindHTTP, Addr: ":8000"},
		{Kind: transport.KindWebSocket, Addr: ":8001"},
		{Kind: transport.KindGRPC, Addr: ":8002"},
	}, cfg.Transports())
	require.NoError(t, cfg.Validate())

	cfg.GRPCPort = "8000"
	assert.ErrorContains(t, cfg.Validate(), "both listen on :8000")
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.StorageDriver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.AuthEnabled = true
	cfg.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestPostgresDSN_EscapesCredentials(t *testing.T) {
	cfg := &Config{DBUser: "app", DBPassword: "p@ss/word", DBHost: "db", DBPort: "5432", DBName: "users", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/users?sslmode=disable", cfg.PostgresDSN())
}

func TestEventsTopology_BindsWelcomeQueue(t *testing.T) {
	t.Setenv("RABBITMQ_EXCHANGE", "")
	t.Setenv("RABBITMQ_EVENTS_QUEUE", "")

	topo := Load().EventsTopology()
	assert.Equal(t, "users.events", topo.Exchange)
	assert.Equal(t, "users.welcome-email", topo.Queue)
	assert.Equal(t, []string{"user.created"}, topo.BindingKeys)
}
