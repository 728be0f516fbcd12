package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "tend.db"
)

type Config struct {
	DBPath          string `toml:"db_path"`
	DaysSoon        int    `toml:"days_soon"`
	FirstWeekday    int    `toml:"first_weekday"` // 0=Monday .. 6=Sunday
	DefaultDuration int    `toml:"default_duration"` // minutes
	DefaultReminder string `toml:"default_reminder"`
	RecurrenceLimit int    `toml:"recurrence_limit"`
	UserEmail       string `toml:"user_email"`
	PriorityHigh    int    `toml:"priority_high"`
	PriorityMedium  int    `toml:"priority_medium"`
	PriorityNormal  int    `toml:"priority_normal"`
	Color           bool   `toml:"color"`
	Keys            Keymap `toml:"keys"`
}

// Keymap holds the interactive-mode key bindings.
type Keymap struct {
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Add      string `toml:"add"`
	Complete string `toml:"complete"`
	Delete   string `toml:"delete"`
	Detail   string `toml:"detail"`
	Edit     string `toml:"edit"`
	Search   string `toml:"search"`
	Confirm  string `toml:"confirm"`
	Cancel   string `toml:"cancel"`
	Quit     string `toml:"quit"`
}

// ResolvePath returns the config file path: $TEND_CONFIG if set, else
// the user config directory.
func ResolvePath() string {
	if p := os.Getenv("TEND_CONFIG"); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(base, "tend", DefaultConfigFileName)
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.DBPath == "" {
		c.DBPath = DefaultDBName
	}
	if c.DaysSoon <= 0 {
		c.DaysSoon = 1
	}
	if c.FirstWeekday < 0 || c.FirstWeekday > 6 {
		c.FirstWeekday = 6
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = 30
	}
	if c.RecurrenceLimit <= 0 {
		c.RecurrenceLimit = 100
	}
	def := defaultKeymap()
	fill := func(key *string, fallback string) {
		if *key == "" {
			*key = fallback
		}
	}
	fill(&c.Keys.Up, def.Up)
	fill(&c.Keys.Down, def.Down)
	fill(&c.Keys.Add, def.Add)
	fill(&c.Keys.Complete, def.Complete)
	fill(&c.Keys.Delete, def.Delete)
	fill(&c.Keys.Detail, def.Detail)
	fill(&c.Keys.Edit, def.Edit)
	fill(&c.Keys.Search, def.Search)
	fill(&c.Keys.Confirm, def.Confirm)
	fill(&c.Keys.Cancel, def.Cancel)
	fill(&c.Keys.Quit, def.Quit)
}

// WeekStart converts the configured first weekday (0=Monday..6=Sunday)
// to a time.Weekday.
func (c Config) WeekStart() time.Weekday {
	return time.Weekday((c.FirstWeekday + 1) % 7)
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBPath:          DefaultDBName,
		DaysSoon:        1,
		FirstWeekday:    6,
		DefaultDuration: 30,
		DefaultReminder: "start-15m",
		RecurrenceLimit: 100,
		PriorityHigh:    3,
		PriorityMedium:  6,
		PriorityNormal:  9,
		Color:           true,
		Keys:            defaultKeymap(),
	}
}

func defaultKeymap() Keymap {
	return Keymap{
		Up:       "k",
		Down:     "j",
		Add:      "a",
		Complete: "c",
		Delete:   "d",
		Detail:   "v",
		Edit:     "e",
		Search:   "/",
		Confirm:  "enter",
		Cancel:   "esc",
		Quit:     "q",
	}
}
