package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/opponent"
)

// Clocks holds the seconds each side starts with.
type Clocks struct {
	ContestantSeconds int `yaml:"contestant_seconds"`
	ChaserSeconds     int `yaml:"chaser_seconds"`
}

// TierProfile configures the simulated chaser for one difficulty tier.
type TierProfile struct {
	Accuracy float64 `yaml:"accuracy"`
	MinThink string  `yaml:"min_think"`
	MaxThink string  `yaml:"max_think"`
}

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Duel struct {
		FeedbackDelay string                 `yaml:"feedback_delay"`
		ThinkDelay    string                 `yaml:"think_delay"`
		IdleTimeout   string                 `yaml:"idle_timeout"`
		Alternating   Clocks                 `yaml:"alternating"`
		CatchUp       Clocks                 `yaml:"catchup"`
		Tiers         map[string]TierProfile `yaml:"tiers"`
	} `yaml:"duel"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// ClockDefaults returns the configured clocks for mode, filling gaps with the
// built-in defaults: 60/60 for alternating, 60/90 for catch-up.
func (c Config) ClockDefaults(mode domain.Mode) Clocks {
	clocks, fallback := c.Duel.Alternating, Clocks{ContestantSeconds: 60, ChaserSeconds: 60}
	if mode == domain.CatchUp {
		clocks, fallback = c.Duel.CatchUp, Clocks{ContestantSeconds: 60, ChaserSeconds: 90}
	}
	if clocks.ContestantSeconds <= 0 {
		clocks.ContestantSeconds = fallback.ContestantSeconds
	}
	if clocks.ChaserSeconds <= 0 {
		clocks.ChaserSeconds = fallback.ChaserSeconds
	}
	return clocks
}

// Profiles converts the configured tiers into opponent profiles. Unknown tier
// names are skipped; missing fields keep the tier's default.
func (c Config) Profiles() map[domain.Tier]opponent.Profile {
	out := make(map[domain.Tier]opponent.Profile, len(c.Duel.Tiers))
	for name, tp := range c.Duel.Tiers {
		tier, err := domain.ParseTier(name)
		if err != nil || name == "" {
			continue
		}
		p := opponent.DefaultProfiles[tier]
		if tp.Accuracy > 0 && tp.Accuracy <= 1 {
			p.Accuracy = tp.Accuracy
		}
		p.MinThink = TTLDuration(tp.MinThink, p.MinThink)
		p.MaxThink = TTLDuration(tp.MaxThink, p.MaxThink)
		out[tier] = p
	}
	return out
}
