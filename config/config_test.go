package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hospiq/patient-queue/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8085, cfg.Server.HTTPPort)
	require.Equal(t, "redis", cfg.Store.Backend)
	require.Equal(t, 1, cfg.Queue.DefaultServingSlots)
	require.Equal(t, 3, cfg.Queue.CongestionLowMax)
	require.Equal(t, 8, cfg.Queue.CongestionModerateMax)
	require.Equal(t, 48*time.Hour, cfg.Queue.EntryTTL)
	require.False(t, cfg.Kafka.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_HTTP_PORT", "9090")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("QUEUE_SERVING_SLOTS", "Emergency=3, OPD=2")
	t.Setenv("QUEUE_DAY_LOCATION", "UTC")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.HTTPPort)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, 3, cfg.Queue.ServingSlotsFor(models.DepartmentEmergency))
	require.Equal(t, 2, cfg.Queue.ServingSlotsFor(models.DepartmentOPD))
	require.Equal(t, 1, cfg.Queue.ServingSlotsFor(models.DepartmentPharmacy), "unlisted departments use the default")
	require.Equal(t, time.UTC, cfg.Queue.DayLocation)
	require.True(t, cfg.Kafka.Enabled)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsBadServingSlots(t *testing.T) {
	t.Setenv("QUEUE_SERVING_SLOTS", "Cardiology=2")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("QUEUE_SERVING_SLOTS", "OPD=zero")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("QUEUE_SERVING_SLOTS", "OPD")
	_, err = Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{HTTPPort: 8085},
			Store:  StoreConfig{Backend: "memory"},
			Queue: QueueConfig{
				DefaultServingSlots:   1,
				CongestionLowMax:      3,
				CongestionModerateMax: 8,
				EntryTTL:              48 * time.Hour,
			},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Server.HTTPPort = 0
	require.Error(t, c.Validate())

	c = base()
	c.Store.Backend = "postgres"
	require.Error(t, c.Validate())

	c = base()
	c.Store.Backend = "redis"
	require.Error(t, c.Validate(), "redis backend requires an address")

	c = base()
	c.Queue.DefaultServingSlots = 0
	require.Error(t, c.Validate())

	c = base()
	c.Queue.CongestionModerateMax = 2
	require.Error(t, c.Validate(), "thresholds must be ordered")

	c = base()
	c.Queue.EntryTTL = 0
	require.Error(t, c.Validate(), "records must outlive the clinic day")

	c = base()
	c.Env = "production"
	require.Error(t, c.Validate(), "production requires a JWT secret")
	c.JWT.Secret = "s"
	require.NoError(t, c.Validate())
}
