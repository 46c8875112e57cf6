// Package bolt implements the persistence layer on a single bbolt file.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license"
	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/storage"
)

var (
	_ storage.Store = (*Store)(nil)
	_ license.Store = (*Store)(nil)
)

var (
	bucketLicense     = []byte("license")
	bucketSettings    = []byte("settings")
	bucketConfigs     = []byte("configs")
	bucketConfigNames = []byte("config_names")

	// single-record buckets use id 1
	recordKey = idKey(1)
)

// Store is a BoltDB-backed storage.Store and license.Store
type Store struct {
	db *bolt.DB
}

// New opens or creates the database at path
func New(path string, timeout time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketLicense, bucketSettings, bucketConfigs, bucketConfigNames} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database can serve a read transaction
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketLicense) == nil {
			return errors.New("license bucket missing")
		}
		return nil
	})
}

// =============================================================================
// License record
// =============================================================================

type licenseRow struct {
	LicenseKey     string `json:"license_key"`
	ExpirationDate string `json:"expiration_date"`
	HWID           string `json:"hwid"`
}

// SaveLicense inserts or replaces the single license record
func (s *Store) SaveLicense(ctx context.Context, rec license.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(licenseRow{
		LicenseKey:     rec.LicenseKey,
		ExpirationDate: rec.ExpiresOn.Format(time.DateOnly),
		HWID:           rec.DeviceID,
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLicense).Put(recordKey, payload)
	})
}

// LoadLicense returns the stored license or storage.ErrNotFound
func (s *Store) LoadLicense(ctx context.Context) (*license.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row licenseRow
	found, err := s.get(bucketLicense, recordKey, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	expires, err := time.ParseInLocation(time.DateOnly, row.ExpirationDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("stored expiration date %q: %w", row.ExpirationDate, err)
	}
	return &license.Record{
		LicenseKey: row.LicenseKey,
		ExpiresOn:  expires,
		DeviceID:   row.HWID,
	}, nil
}

// =============================================================================
// Settings
// =============================================================================

// LoadSettings returns the stored settings, or the defaults when none exist
func (s *Store) LoadSettings(ctx context.Context) (storage.Settings, error) {
	if err := ctx.Err(); err != nil {
		return storage.Settings{}, err
	}
	settings := storage.DefaultSettings()
	if _, err := s.get(bucketSettings, recordKey, &settings); err != nil {
		return storage.Settings{}, err
	}
	return settings, nil
}

// SaveSettings replaces the stored settings
func (s *Store) SaveSettings(ctx context.Context, settings storage.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put(recordKey, payload)
	})
}

// =============================================================================
// Saved configs
// =============================================================================

// ListConfigs returns every saved config in id order
func (s *Store) ListConfigs(ctx context.Context) ([]*storage.SavedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	configs := []*storage.SavedConfig{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConfigs).ForEach(func(_, v []byte) error {
			var cfg storage.SavedConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return err
			}
			configs = append(configs, &cfg)
			return nil
		})
	})
	return configs, err
}

// GetConfig fetches a saved config by id
func (s *Store) GetConfig(ctx context.Context, id uint64) (*storage.SavedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var cfg storage.SavedConfig
	found, err := s.get(bucketConfigs, idKey(id), &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	return &cfg, nil
}

// CurrentConfig returns the most recently created config
func (s *Store) CurrentConfig(ctx context.Context) (*storage.SavedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var cfg *storage.SavedConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(bucketConfigs).Cursor().Last()
		if v == nil {
			return storage.ErrNotFound
		}
		cfg = &storage.SavedConfig{}
		return json.Unmarshal(v, cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateConfig stores a new config under a fresh id
func (s *Store) CreateConfig(ctx context.Context, name, config string) (*storage.SavedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	cfg := &storage.SavedConfig{
		Name:              name,
		Config:            config,
		CustomExportPaths: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket(bucketConfigNames)
		if names.Get([]byte(name)) != nil {
			return storage.ErrNameExists
		}
		bkt := tx.Bucket(bucketConfigs)
		id, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		cfg.ID = id
		if err := names.Put([]byte(name), idKey(id)); err != nil {
			return err
		}
		return putJSON(bkt, idKey(id), cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateConfig replaces the name and body of an existing config
func (s *Store) UpdateConfig(ctx context.Context, id uint64, name, config string) (*storage.SavedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var cfg storage.SavedConfig
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketConfigs)
		key := idKey(id)
		v := bkt.Get(key)
		if v == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(v, &cfg); err != nil {
			return err
		}

		names := tx.Bucket(bucketConfigNames)
		if owner := names.Get([]byte(name)); owner != nil && !bytes.Equal(owner, key) {
			return storage.ErrNameExists
		}
		if cfg.Name != name {
			if err := names.Delete([]byte(cfg.Name)); err != nil {
				return err
			}
			if err := names.Put([]byte(name), key); err != nil {
				return err
			}
		}

		cfg.Name = name
		cfg.Config = config
		cfg.UpdatedAt = time.Now().UTC()
		return putJSON(bkt, key, &cfg)
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DeleteConfig removes a config and frees its name
func (s *Store) DeleteConfig(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketConfigs)
		key := idKey(id)
		v := bkt.Get(key)
		if v == nil {
			return storage.ErrNotFound
		}
		var cfg storage.SavedConfig
		if err := json.Unmarshal(v, &cfg); err != nil {
			return err
		}
		if err := tx.Bucket(bucketConfigNames).Delete([]byte(cfg.Name)); err != nil {
			return err
		}
		return bkt.Delete(key)
	})
}

// ConfigNameExists reports whether name is taken
func (s *Store) ConfigNameExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketConfigNames).Get([]byte(name)) != nil
		return nil
	})
	return exists, err
}

// UpdateExportPaths replaces the custom export paths of a config
func (s *Store) UpdateExportPaths(ctx context.Context, id uint64, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if paths == nil {
		paths = []string{}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketConfigs)
		key := idKey(id)
		v := bkt.Get(key)
		if v == nil {
			return storage.ErrNotFound
		}
		var cfg storage.SavedConfig
		if err := json.Unmarshal(v, &cfg); err != nil {
			return err
		}
		cfg.CustomExportPaths = paths
		cfg.UpdatedAt = time.Now().UTC()
		return putJSON(bkt, key, &cfg)
	})
}

// =============================================================================
// helpers
// =============================================================================

func (s *Store) get(bucket, key []byte, out interface{}) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, out)
	})
	return found, err
}

func putJSON(bkt *bolt.Bucket, key []byte, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return bkt.Put(key, payload)
}

func idKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
