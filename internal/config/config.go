package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Room maps a bookable unit to the calendars that all must be free for
// it to be available. The tariff table key is the room name.
type Room struct {
	Name        string   `yaml:"name"`
	CalendarIDs []string `yaml:"calendar_ids"`
}

type Config struct {
	Server struct {
		Port            int `yaml:"port"`
		RateLimitPerSec int `yaml:"rate_limit_per_sec"`
		RateLimitBurst  int `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Calendar struct {
		CredentialsPath string `yaml:"credentials_path"`
		TokenPath       string `yaml:"token_path"`
	} `yaml:"calendar"`

	Tariffs struct {
		// Backend is "csv" or "sqlite".
		Backend string `yaml:"backend"`
		CSVDir  string `yaml:"csv_dir"`
		DBPath  string `yaml:"db_path"`
	} `yaml:"tariffs"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Pricing struct {
		ExtraAdultRate string `yaml:"extra_adult_rate"`
		PetFee         string `yaml:"pet_fee"`
		CleaningFee    string `yaml:"cleaning_fee"`
	} `yaml:"pricing"`

	Booking struct {
		HorizonMonths int `yaml:"booking_horizon_months"`
		MinStayNights int `yaml:"min_stay_nights"`
	} `yaml:"booking"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Rooms []Room `yaml:"rooms"`
}

// Load reads the YAML config, expanding ${ENV_VAR} placeholders. A local
// .env file, if present, is loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if len(cfg.Rooms) == 0 {
		return nil, fmt.Errorf("at least one room must be configured")
	}
	for _, room := range cfg.Rooms {
		if room.Name == "" || len(room.CalendarIDs) == 0 {
			return nil, fmt.Errorf("room %q must have a name and at least one calendar_id", room.Name)
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec == 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Tariffs.Backend == "" {
		c.Tariffs.Backend = "csv"
	}
	if c.Tariffs.CSVDir == "" {
		c.Tariffs.CSVDir = "rooms_prices"
	}
	if c.Tariffs.DBPath == "" {
		c.Tariffs.DBPath = "data/tariffs.db"
	}
	if c.Pricing.ExtraAdultRate == "" {
		c.Pricing.ExtraAdultRate = "50.00"
	}
	if c.Pricing.PetFee == "" {
		c.Pricing.PetFee = "15.00"
	}
	if c.Pricing.CleaningFee == "" {
		c.Pricing.CleaningFee = "25.00"
	}
	if c.Booking.HorizonMonths == 0 {
		c.Booking.HorizonMonths = 12
	}
	if c.Booking.MinStayNights == 0 {
		c.Booking.MinStayNights = 1
	}
}

// RoomByName returns the configured room with the given name.
func (c *Config) RoomByName(name string) (Room, bool) {
	for _, room := range c.Rooms {
		if room.Name == name {
			return room, true
		}
	}
	return Room{}, false
}
