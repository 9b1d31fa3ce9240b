package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"safeshift/internal/session"
	"safeshift/pkg/platform/sentinel"
)

// DiskStore persists one record per profile under a private directory so a
// login survives between CLI invocations. Records older than ttl are
// treated as absent.
type DiskStore struct {
	d       *diskv.Diskv
	profile string
	ttl     time.Duration
	now     func() time.Time
}

// NewDisk stores records in dir, keyed by profile.
func NewDisk(dir, profile string, ttl time.Duration) *DiskStore {
	return &DiskStore{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 64 * 1024,
			FilePerm:     0o600,
			PathPerm:     0o700,
		}),
		profile: profile,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *DiskStore) key() string {
	return "session-" + s.profile + ".json"
}

func (s *DiskStore) Load(_ context.Context) (*session.Record, error) {
	raw, err := s.d.Read(s.key())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var rec session.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		_ = s.d.Erase(s.key())
		return nil, fmt.Errorf("decode session file: %w: %w", sentinel.ErrCorrupt, err)
	}
	if s.ttl > 0 && s.now().Sub(rec.SavedAt) > s.ttl {
		_ = s.d.Erase(s.key())
		return nil, sentinel.ErrExpired
	}
	return &rec, nil
}

func (s *DiskStore) Save(_ context.Context, rec session.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.d.Write(s.key(), raw)
}

func (s *DiskStore) Delete(_ context.Context) error {
	err := s.d.Erase(s.key())
	if errors.Is(err, fs.ErrNotExist) {
		return sentinel.ErrNotFound
	}
	return err
}
