package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "lyrics"

// BoltStore wraps BoltDB with an in-memory copy for fast reads.
type BoltStore struct {
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	backupPath         string
	compressionEnabled bool
	now                func() time.Time
	mu                 sync.RWMutex // guards db across backup reopen
}

// boltEntry is the stored form of a value. Value may be compressed.
type boltEntry struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // unix seconds, 0 = never
}

func (e boltEntry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.Unix() >= e.ExpiresAt
}

// NewBoltStore opens or creates the database at dbPath. An empty backupPath
// disables backups.
func NewBoltStore(dbPath, backupPath string, compressionEnabled bool) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if backupPath != "" {
		if err := os.MkdirAll(backupPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing database at %s (size: %d bytes)", logcolors.LogCacheInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating new database at %s", logcolors.LogCacheInit, dbPath)
	}

	s := &BoltStore{
		dbPath:             dbPath,
		backupPath:         backupPath,
		compressionEnabled: compressionEnabled,
		now:                time.Now,
	}
	if err := s.open(); err != nil {
		return nil, err
	}

	log.Infof("%s Bolt store initialized at %s (compression: %v)", logcolors.LogCache, dbPath, compressionEnabled)
	return s, nil
}

func (s *BoltStore) open() error {
	db, err := bolt.Open(s.dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create cache bucket: %w", err)
	}

	s.db = db
	if err := s.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload cache to memory: %v", logcolors.LogCache, err)
	}
	return nil
}

// loadToMemory copies unexpired entries from disk to memory.
func (s *BoltStore) loadToMemory() error {
	count := 0
	now := s.now()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry boltEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Skipping unreadable entry %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			if entry.expired(now) {
				return nil
			}
			s.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d entries from disk to memory", logcolors.LogCache, count)
	return nil
}

func (s *BoltStore) decode(key string, entry boltEntry) (string, bool, error) {
	if !s.compressionEnabled {
		return entry.Value, true, nil
	}
	value, err := utils.DecompressValue(key, entry.Value)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Get checks memory first, then disk. Expired entries are dropped lazily.
func (s *BoltStore) Get(ctx context.Context, key string) (string, bool, error) {
	now := s.now()

	if v, ok := s.memCache.Load(key); ok {
		entry := v.(boltEntry)
		if entry.expired(now) {
			s.Delete(ctx, key)
			return "", false, nil
		}
		return s.decode(key, entry)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry boltEntry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", false, err
	}
	if !found || entry.expired(now) {
		return "", false, nil
	}

	s.memCache.Store(key, entry)
	return s.decode(key, entry)
}

// Set stores value in memory and on disk.
func (s *BoltStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	stored := value
	if s.compressionEnabled {
		var err error
		stored, err = utils.CompressValue(key, value)
		if err != nil {
			return err
		}
	}

	entry := boltEntry{Value: stored}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl).Unix()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	}); err != nil {
		return err
	}
	s.memCache.Store(key, entry)
	return nil
}

// Delete removes a key.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	s.memCache.Delete(key)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Clear removes all entries.
func (s *BoltStore) Clear(ctx context.Context) (int, error) {
	count := 0
	s.memCache.Range(func(key, value interface{}) bool {
		s.memCache.Delete(key)
		count++
		return true
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	return count, err
}

// Stats counts in-memory entries and their approximate size.
func (s *BoltStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Backend: "bolt"}
	size := 0
	s.memCache.Range(func(k, v interface{}) bool {
		st.Keys++
		size += len(k.(string)) + len(v.(boltEntry).Value)
		return true
	})
	st.SizeKB = size / 1024
	return st, nil
}

// Backup copies the database file into the backup directory and returns its path.
func (s *BoltStore) Backup() (string, error) {
	if s.backupPath == "" {
		return "", fmt.Errorf("backups are disabled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := s.now().Format("2006-01-02_15-04-05")
	backupFilePath := filepath.Join(s.backupPath, fmt.Sprintf("cache_backup_%s.db", timestamp))

	log.Infof("%s Creating backup at %s", logcolors.LogCache, backupFilePath)

	err := s.db.View(func(tx *bolt.Tx) error {
		f, err := os.Create(backupFilePath)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := tx.WriteTo(f); err != nil {
			return err
		}
		return f.Sync()
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return backupFilePath, nil
}

// Restore replaces the live database with a backup file from the backup directory.
func (s *BoltStore) Restore(backupFileName string) error {
	if filepath.Ext(backupFileName) != ".db" || filepath.Base(backupFileName) != backupFileName {
		return fmt.Errorf("invalid backup file %q", backupFileName)
	}
	src := filepath.Join(s.backupPath, backupFileName)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("backup file not found: %s", backupFileName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.memCache.Range(func(key, _ interface{}) bool {
		s.memCache.Delete(key)
		return true
	})

	copyErr := copyFile(src, s.dbPath)
	if err := s.open(); err != nil {
		return err
	}
	if copyErr != nil {
		return fmt.Errorf("failed to restore backup: %w", copyErr)
	}

	log.Infof("%s Restored from backup %s", logcolors.LogCache, backupFileName)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Close closes the database connection
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
