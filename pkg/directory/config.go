package directory

import (
	"fmt"
	"os"
	"path/filepath"
)

// Type defines the supported directory backends.
type Type string

const (
	// TypeStatic reads contacts from a YAML file.
	TypeStatic Type = "static"

	// TypeSQLite keeps contacts in a SQLite database (default).
	TypeSQLite Type = "sqlite"

	// TypePostgres keeps contacts in PostgreSQL.
	TypePostgres Type = "postgres"

	// TypeBadger keeps contacts in an embedded badger store.
	TypeBadger Type = "badger"
)

// Types lists every backend type.
var Types = []Type{TypeStatic, TypeSQLite, TypePostgres, TypeBadger}

// StaticConfig configures the YAML backend.
type StaticConfig struct {
	// Path is the contacts file.
	Path string `mapstructure:"path" yaml:"path"`

	// Watch reloads the file when it changes.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: $XDG_CONFIG_HOME/contactpic/contacts.db
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"` // disable, require, verify-ca, verify-full
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// BadgerConfig configures the badger backend.
type BadgerConfig struct {
	// Path is the database directory.
	// Default: $XDG_CONFIG_HOME/contactpic/contacts.badger
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory keeps the store in memory only. Path is ignored.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`
}

// Config selects and configures a directory backend.
type Config struct {
	Type     Type           `mapstructure:"type" validate:"omitempty,oneof=static sqlite postgres badger" yaml:"type"`
	Static   StaticConfig   `mapstructure:"static" yaml:"static"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	Badger   BadgerConfig   `mapstructure:"badger" yaml:"badger"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeSQLite
	}

	switch c.Type {
	case TypeSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = filepath.Join(DataDir(), "contacts.db")
		}
	case TypeBadger:
		if c.Badger.Path == "" && !c.Badger.InMemory {
			c.Badger.Path = filepath.Join(DataDir(), "contacts.badger")
		}
	case TypePostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks the settings of the selected backend.
func (c *Config) Validate() error {
	switch c.Type {
	case TypeStatic:
		if c.Static.Path == "" {
			return fmt.Errorf("static directory path is required")
		}
	case TypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case TypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	case TypeBadger:
		if c.Badger.Path == "" && !c.Badger.InMemory {
			return fmt.Errorf("badger path is required unless in_memory is set")
		}
	default:
		return fmt.Errorf("unsupported directory type: %q", c.Type)
	}
	return nil
}

// DataDir returns the directory holding contactpic's local databases.
func DataDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "contactpic")
}
