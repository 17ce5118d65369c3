package vqlayer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/hupe1980/vqlayer/blobstore"
	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/remap"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the environment variable prefix read by LoadConfigFromEnv.
const EnvPrefix = "VQ"

// Config declares a quantizer. It can be read from YAML or from
// VQ_-prefixed environment variables.
type Config struct {
	// NumEmbeddings is n_e, the number of codebook entries.
	NumEmbeddings int `yaml:"num_embeddings" envconfig:"NUM_EMBEDDINGS" default:"1000"`

	// EmbeddingDim is e_dim, the channel count of the quantized feature map.
	EmbeddingDim int `yaml:"embedding_dim" envconfig:"EMBEDDING_DIM" default:"1024"`

	// Heads is k_e. 1 builds a VectorQuantizer, more a MultiHeadVectorQuantizer.
	Heads int `yaml:"heads" envconfig:"HEADS" default:"1"`

	Beta           float64 `yaml:"beta" envconfig:"BETA" default:"0.25"`
	Legacy         bool    `yaml:"legacy" envconfig:"LEGACY" default:"true"`
	SaneIndexShape bool    `yaml:"sane_index_shape" envconfig:"SANE_INDEX_SHAPE" default:"false"`

	// Init is "uniform" or "normal".
	Init string `yaml:"init" envconfig:"INIT" default:"uniform"`

	// Remap names a used-index blob. Empty disables remapping.
	Remap string `yaml:"remap" envconfig:"REMAP"`

	// UnknownIndex is "random", "extra" or an integer.
	UnknownIndex remap.UnknownPolicy `yaml:"unknown_index" envconfig:"UNKNOWN_INDEX" default:"random"`

	// Seed seeds every random source. 0 picks a time-based seed.
	Seed int64 `yaml:"seed" envconfig:"SEED" default:"0"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		NumEmbeddings: 1000,
		EmbeddingDim:  1024,
		Heads:         1,
		Beta:          0.25,
		Legacy:        true,
		Init:          "uniform",
		UnknownIndex:  remap.UnknownRandom(),
	}
}

// LoadConfigFromEnv reads a Config from VQ_* environment variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// LoadConfigFile reads a YAML Config. Missing keys keep their defaults.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(raw)
}

// ParseConfig decodes YAML onto DefaultConfig and validates the result.
func ParseConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the Config for values no quantizer can be built from.
func (c Config) Validate() error {
	if c.NumEmbeddings <= 0 {
		return invalidConfig("num_embeddings must be positive")
	}
	if c.EmbeddingDim <= 0 {
		return invalidConfig("embedding_dim must be positive")
	}
	if c.Heads <= 0 {
		return invalidConfig("heads must be positive")
	}
	if c.EmbeddingDim%c.Heads != 0 {
		return invalidConfig("embedding_dim %d is not divisible by heads %d", c.EmbeddingDim, c.Heads)
	}
	if c.Beta < 0 || math.IsNaN(c.Beta) || math.IsInf(c.Beta, 0) {
		return invalidConfig("beta must be a finite non-negative number")
	}
	if _, err := c.codebookInit(); err != nil {
		return err
	}
	return nil
}

func (c Config) codebookInit() (codebook.Init, error) {
	switch c.Init {
	case "", "uniform", "random_uniform":
		return codebook.InitUniform, nil
	case "normal":
		return codebook.InitNormal, nil
	default:
		return 0, invalidConfig("init must be \"uniform\" or \"normal\", got %q", c.Init)
	}
}

// Rand returns a random source seeded from Seed.
func (c Config) Rand() *rand.Rand {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// New builds the quantizer described by cfg. When cfg.Remap is set the
// used-index file is loaded from store. opts are applied after the options
// derived from cfg.
func New(ctx context.Context, cfg Config, store blobstore.BlobStore, opts ...Option) (Quantizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cbInit, _ := cfg.codebookInit()
	rng := cfg.Rand()

	base := []Option{
		WithLegacy(cfg.Legacy),
		WithSaneIndexShape(cfg.SaneIndexShape),
		WithInit(cbInit),
		WithRand(rng),
	}

	if cfg.Remap != "" {
		if store == nil {
			return nil, invalidConfig("remap %q configured without a blob store", cfg.Remap)
		}
		r, err := remap.Load(ctx, store, cfg.Remap, cfg.UnknownIndex, rand.New(rand.NewSource(rng.Int63())))
		if err != nil {
			return nil, err
		}
		base = append(base, WithRemapper(r))
	}

	all := append(base, opts...)
	if cfg.Heads == 1 {
		vq, err := NewVectorQuantizer(cfg.NumEmbeddings, cfg.EmbeddingDim, cfg.Beta, all...)
		if err != nil {
			return nil, err
		}
		return vq, nil
	}
	mq, err := NewMultiHeadVectorQuantizer(cfg.NumEmbeddings, cfg.Heads, cfg.EmbeddingDim, cfg.Beta, all...)
	if err != nil {
		return nil, err
	}
	return mq, nil
}
