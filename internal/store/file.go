package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/accrue/internal/model"
)

// FileRepository keeps the configuration in a single file whose format is
// chosen by extension: .json, .toml, .yaml or .yml.
type FileRepository struct {
	path  string
	codec codec
}

type codec interface {
	encode(r record) ([]byte, error)
	decode(data []byte) (record, error)
}

// NewFileRepository returns a repository for path.
func NewFileRepository(path string) (*FileRepository, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	return &FileRepository{path: path, codec: c}, nil
}

// Path returns the file location.
func (r *FileRepository) Path() string { return r.path }

// Load reads and validates the record.
func (r *FileRepository) Load(_ context.Context) (model.AccrualConfig, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.AccrualConfig{}, fmt.Errorf("%w: %s", ErrNotFound, r.path)
		}
		return model.AccrualConfig{}, fmt.Errorf("reading config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.AccrualConfig{}, fmt.Errorf("%w: %s is empty", ErrCorrupt, r.path)
	}

	rec, err := r.codec.decode(data)
	if err != nil {
		return model.AccrualConfig{}, fmt.Errorf("%w: parsing %s: %v", ErrCorrupt, r.path, err)
	}
	return rec.config()
}

// Save replaces the file atomically.
func (r *FileRepository) Save(_ context.Context, cfg model.AccrualConfig) error {
	data, err := r.codec.encode(toRecord(cfg))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return jsonCodec{}, nil
	case ".toml":
		return tomlCodec{}, nil
	case ".yaml", ".yml":
		return yamlCodec{}, nil
	}
	return nil, fmt.Errorf("unsupported config file extension %q (want .json, .toml, .yaml)", filepath.Ext(path))
}

type jsonCodec struct{}

// jsonRecord accepts amounts written either as strings or as bare numbers.
type jsonRecord struct {
	StartingAmount json.Number `json:"starting_amount"`
	MonthlyIncome  json.Number `json:"monthly_income"`
	CurrentAmount  json.Number `json:"current_amount"`
}

func (jsonCodec) encode(r record) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonCodec) decode(data []byte) (record, error) {
	var raw jsonRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return record{}, err
	}
	return record{
		StartingAmount: raw.StartingAmount.String(),
		MonthlyIncome:  raw.MonthlyIncome.String(),
		CurrentAmount:  raw.CurrentAmount.String(),
	}, nil
}

type tomlCodec struct{}

func (tomlCodec) encode(r record) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) decode(data []byte) (record, error) {
	var r record
	_, err := toml.Decode(string(data), &r)
	return r, err
}

type yamlCodec struct{}

func (yamlCodec) encode(r record) ([]byte, error) {
	return yaml.Marshal(r)
}

func (yamlCodec) decode(data []byte) (record, error) {
	var r record
	err := yaml.Unmarshal(data, &r)
	return r, err
}
