package cli

import (
	"context"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/pipeline"
	"github.com/matzehuels/patchy/pkg/store"
)

// defaultConfigFile is loaded from the working directory when --config is
// not given. Missing file is not an error.
const defaultConfigFile = "patchy.toml"

// config is the TOML file layout:
//
//	[pipeline]
//	num_nodes = 100
//	neighborhood_size = 9
//	labeling = "scanline"
//
//	[store]
//	backend = "file"
//	path = "data/mnist"
type config struct {
	Pipeline pipeline.Options `toml:"pipeline"`
	Store    storeConfig      `toml:"store"`
}

// storeConfig selects and configures a record store backend.
type storeConfig struct {
	// Backend is "file" (default), "redis", or "mongo".
	Backend string `toml:"backend"`

	// File backend
	Path string `toml:"path"`

	// Redis backend
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	// Mongo backend
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`

	// Prefix namespaces keys/collections for redis and mongo.
	Prefix string `toml:"prefix"`
}

// loadConfig reads a TOML config file. With an empty path the default
// file is used if present; an explicit path must exist.
func loadConfig(path string) (config, error) {
	var cfg config
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, errors.ErrCodeNotFound, "read config file")
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.ErrCodeInvalidConfig, "parse config file")
	}
	return cfg, nil
}

// storeFlags adds the store backend flags shared by write, inspect, and
// serve, writing into cfg. Flag values override config file values only
// when the flag was changed.
func storeFlags(cmd *cobra.Command, cfg *storeConfig) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.Backend, "store", "", "store backend: file, redis, or mongo")
	flags.StringVar(&cfg.Path, "path", "", "file store directory")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis address (host:port)")
	flags.StringVar(&cfg.MongoURI, "mongo-uri", "", "mongodb connection URI")
	flags.StringVar(&cfg.MongoDatabase, "mongo-db", "", "mongodb database name")
	flags.StringVar(&cfg.Prefix, "prefix", "", "key/collection prefix for redis and mongo")
}

// merge overlays flag-provided values onto file-provided ones.
func (c *storeConfig) merge(flags storeConfig) {
	if flags.Backend != "" {
		c.Backend = flags.Backend
	}
	if flags.Path != "" {
		c.Path = flags.Path
	}
	if flags.RedisAddr != "" {
		c.RedisAddr = flags.RedisAddr
	}
	if flags.MongoURI != "" {
		c.MongoURI = flags.MongoURI
	}
	if flags.MongoDatabase != "" {
		c.MongoDatabase = flags.MongoDatabase
	}
	if flags.Prefix != "" {
		c.Prefix = flags.Prefix
	}
}

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg storeConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = "data"
		}
		return store.NewFileStore(path)
	case "redis":
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
	case "mongo":
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Prefix:   cfg.Prefix,
		})
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}
