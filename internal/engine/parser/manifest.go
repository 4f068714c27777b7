package parser

import (
	"bytes"
	"os"
	"path/filepath"

	"semgraph/internal/core/errors"

	"gopkg.in/yaml.v3"
)

// LoadManifest reads a forest from a YAML manifest. Manifests let other
// front-ends, and tests, hand a pre-parsed crate to the build.
func LoadManifest(path string) (Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Forest{}, errors.Wrap(err, errors.CodeNotFound, "read manifest")
	}
	return DecodeManifest(data)
}

func DecodeManifest(data []byte) (Forest, error) {
	var f Forest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Forest{}, errors.Wrap(err, errors.CodeValidationError, "decode manifest")
	}
	if len(f.Modules) == 0 {
		return Forest{}, errors.New(errors.CodeValidationError, "manifest declares no modules")
	}
	return f, nil
}

func SaveManifest(path string, f Forest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode manifest")
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
