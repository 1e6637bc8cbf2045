package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
rooms:
  - name: "Calypso"
    calendar_ids: ["calypso@group.calendar.google.com"]
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 20, cfg.Server.RateLimitBurst)
	assert.Equal(t, "csv", cfg.Tariffs.Backend)
	assert.Equal(t, "rooms_prices", cfg.Tariffs.CSVDir)
	assert.Equal(t, "50.00", cfg.Pricing.ExtraAdultRate)
	assert.Equal(t, "15.00", cfg.Pricing.PetFee)
	assert.Equal(t, "25.00", cfg.Pricing.CleaningFee)
	assert.Equal(t, 12, cfg.Booking.HorizonMonths)
	assert.Equal(t, 1, cfg.Booking.MinStayNights)
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9000
  rate_limit_per_sec: 5
tariffs:
  backend: "sqlite"
  db_path: "/var/lib/villabook/tariffs.db"
redis:
  address: "localhost:6379"
  cache_ttl_seconds: 300
booking:
  booking_horizon_months: 6
  min_stay_nights: 2
rooms:
  - name: "Calypso"
    calendar_ids: ["a@example.com", "b@example.com"]
  - name: "Ulisse"
    calendar_ids: ["c@example.com"]
`))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Tariffs.Backend)
	assert.Equal(t, 300, cfg.Redis.CacheTTLSeconds)
	assert.Equal(t, 6, cfg.Booking.HorizonMonths)
	assert.Equal(t, 2, cfg.Booking.MinStayNights)
	require.Len(t, cfg.Rooms, 2)
	assert.Len(t, cfg.Rooms[0].CalendarIDs, 2)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("VILLABOOK_TEST_REDIS_PASSWORD", "s3cret")

	cfg, err := Load(writeConfig(t, `
redis:
  address: "localhost:6379"
  password: "${VILLABOOK_TEST_REDIS_PASSWORD}"
`+minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestLoadRejectsNoRooms(t *testing.T) {
	_, err := Load(writeConfig(t, `server:
  port: 9000
`))
	require.Error(t, err)
}

func TestLoadRejectsRoomWithoutCalendars(t *testing.T) {
	_, err := Load(writeConfig(t, `
rooms:
  - name: "Calypso"
    calendar_ids: []
`))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRoomByName(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	room, ok := cfg.RoomByName("Calypso")
	require.True(t, ok)
	assert.Equal(t, "Calypso", room.Name)

	_, ok = cfg.RoomByName("attic")
	assert.False(t, ok)
}
