package index

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// UnitSuffix is appended to the unit name of persisted records.
const UnitSuffix = ".f2hmod"

// unitSchemaVersion is bumped whenever Record changes shape.
const unitSchemaVersion uint16 = 1

// ErrSchemaMismatch is returned for unit files written by another version.
var ErrSchemaMismatch = errors.New("unit file schema mismatch")

type unitFile struct {
	Schema uint16 `msgpack:"schema"`
	Record Record `msgpack:"record"`
}

// Persist serializes rec into its durable form.
func Persist(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&unitFile{Schema: unitSchemaVersion, Record: rec}); err != nil {
		return nil, fmt.Errorf("encode unit %q: %w", rec.Name, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal is the inverse of Persist.
func Unmarshal(data []byte) (Record, error) {
	var uf unitFile
	if err := msgpack.Unmarshal(data, &uf); err != nil {
		return Record{}, fmt.Errorf("decode unit: %w", err)
	}
	if uf.Schema != unitSchemaVersion {
		return Record{}, fmt.Errorf("%w: have %d, want %d", ErrSchemaMismatch, uf.Schema, unitSchemaVersion)
	}
	return uf.Record, nil
}

// UnitPath returns the artifact path of the unit called name in dir.
func UnitPath(dir, name string) string {
	return filepath.Join(dir, strings.ToLower(name)+UnitSuffix)
}

// WriteUnit persists rec into dir, replacing an existing artifact
// atomically.
func WriteUnit(dir string, rec Record) (string, error) {
	data, err := Persist(rec)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := UnitPath(dir, rec.Name)
	f, err := os.CreateTemp(dir, ".tmp-*"+UnitSuffix)
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // no-op after a successful rename

	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads one persisted record.
func Load(path string) (Record, error) {
	// #nosec G304 -- unit paths come from configured module directories
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	rec, err := Unmarshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// LoadDirs inserts every unit file found in dirs into idx, skipping units
// whose name is already present. It returns the number of loaded records.
func LoadDirs(idx *Index, dirs []string) (int, error) {
	loaded := 0
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+UnitSuffix))
		if err != nil {
			return loaded, err
		}
		for _, path := range matches {
			if strings.HasPrefix(filepath.Base(path), ".tmp-") {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(path), UnitSuffix)
			if idx.Has(name) {
				continue
			}
			rec, err := Load(path)
			if err != nil {
				return loaded, err
			}
			idx.Insert(rec)
			loaded++
		}
	}
	return loaded, nil
}
