package cmd

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/forestrie/go-merkletrees/indexedtree"
	"github.com/forestrie/go-merkletrees/merkle"
	"github.com/forestrie/go-merkletrees/sparsetree"
)

// Config is the merkletool configuration, read from a TOML file. Command
// line flags override the file.
type Config struct {
	Hash     string `toml:"hash"`
	RawPairs bool   `toml:"raw_pairs"`
	LogLevel string `toml:"log_level"`

	Sparse  SparseConfig  `toml:"sparse"`
	Indexed IndexedConfig `toml:"indexed"`
	Attest  AttestConfig  `toml:"attest"`
}

type SparseConfig struct {
	Depth       int    `toml:"depth"`
	DefaultLeaf string `toml:"default_leaf"`
}

type IndexedConfig struct {
	Height            int    `toml:"height"`
	AllowDuplicates   bool   `toml:"allow_duplicates"`
	BloomBitsPerValue uint64 `toml:"bloom_bits_per_value"`
	BloomK            uint8  `toml:"bloom_k"`
}

type AttestConfig struct {
	Issuer  string `toml:"issuer"`
	Subject string `toml:"subject"`
	// KeyPath is a PEM encoded EC private key. An ephemeral P-256 key is
	// generated when it is empty.
	KeyPath string `toml:"key_path"`
}

func DefaultConfig() Config {
	return Config{
		Hash:     merkle.HashSHA256,
		LogLevel: "NOOP",
		Sparse: SparseConfig{
			Depth: 8,
		},
		Indexed: IndexedConfig{
			Height:            8,
			BloomBitsPerValue: indexedtree.DefaultBloomBitsPerValue,
			BloomK:            indexedtree.DefaultBloomK,
		},
		Attest: AttestConfig{
			Issuer:  "merkletool",
			Subject: "merkletool",
		},
	}
}

// LoadConfig returns the defaults overlaid with the settings in file. An
// empty file name returns the defaults.
func LoadConfig(file string) (Config, error) {
	cfg := DefaultConfig()
	if file == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(file, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Hasher(); err != nil {
		return err
	}
	if c.Sparse.Depth < sparsetree.MinDepth || c.Sparse.Depth > sparsetree.MaxDepth {
		return fmt.Errorf("%w: sparse.depth %d", merkle.ErrInvalidConfiguration, c.Sparse.Depth)
	}
	if c.Indexed.Height < indexedtree.MinHeight || c.Indexed.Height > indexedtree.MaxHeight {
		return fmt.Errorf("%w: indexed.height %d", merkle.ErrInvalidConfiguration, c.Indexed.Height)
	}
	return nil
}

func (c Config) Hasher() (merkle.Hasher, error) {
	var opts []merkle.HasherOption
	if c.RawPairs {
		opts = append(opts, merkle.WithRawPairs())
	}
	return merkle.HasherByName(c.Hash, opts...)
}

// treeOptions returns the options shared by every tree the tool builds.
func (c Config) treeOptions() ([]merkle.Option, error) {
	h, err := c.Hasher()
	if err != nil {
		return nil, err
	}
	return []merkle.Option{merkle.WithHasher(h), merkle.WithLogger(log)}, nil
}
