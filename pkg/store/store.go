package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mcpwatch/mcpwatch/pkg/aggregator"
)

var bucketRuns = []byte("runs") // SessionID -> RunInfo JSON

// Config configures a store.
type Config struct {
	// Root is the directory session records are written under.
	Root string

	// DB is the BoltDB instance holding the run index. Optional; a
	// nil DB disables indexing and List returns nothing.
	DB *bolt.DB

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// fileStore implements the Store interface.
type fileStore struct {
	cfg Config
}

// New creates a session store rooted at cfg.Root.
func New(cfg Config) (Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("store root directory is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.DB != nil {
		if err := cfg.DB.Update(func(tx *bolt.Tx) error {
			_, createErr := tx.CreateBucketIfNotExists(bucketRuns)
			return createErr
		}); err != nil {
			return nil, fmt.Errorf("failed to create runs bucket: %w", err)
		}
	}

	return &fileStore{cfg: cfg}, nil
}

// Save implements Store.Save.
func (s *fileStore) Save(snap *aggregator.DisplaySnapshot) (string, error) {
	if snap == nil {
		return "", ErrNilSnapshot
	}

	path := s.recordPath(snap)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	// Tool calls live at the top level of the record; the session
	// block holds only aggregates.
	session := *snap
	calls := session.ToolCalls
	session.ToolCalls = nil
	if calls == nil {
		calls = []aggregator.ToolCall{}
	}

	rec := Record{
		File: FileHeader{
			SchemaVersion: SchemaVersion,
			Type:          RecordType,
		},
		Session:   &session,
		ToolCalls: calls,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session record: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write session record: %w", err)
	}

	if err := s.index(snap, path); err != nil {
		return "", err
	}

	return path, nil
}

// recordPath derives the deterministic record location:
// <root>/<platform>/<YYYY-MM-DD>/<project>-<runid>.json.
func (s *fileStore) recordPath(snap *aggregator.DisplaySnapshot) string {
	date := snap.StartedAt
	if date.IsZero() {
		date = s.cfg.Clock()
	}

	runID := snap.SessionID
	if len(runID) > 8 {
		runID = runID[:8]
	}

	project := snap.Project
	if project == "" {
		project = "unknown"
	}

	return filepath.Join(
		s.cfg.Root,
		snap.Platform,
		date.Format("2006-01-02"),
		fmt.Sprintf("%s-%s.json", project, runID),
	)
}

func (s *fileStore) index(snap *aggregator.DisplaySnapshot, path string) error {
	if s.cfg.DB == nil {
		return nil
	}

	info := RunInfo{
		SessionID:   snap.SessionID,
		Platform:    snap.Platform,
		Project:     snap.Project,
		Path:        path,
		SavedAt:     s.cfg.Clock(),
		TotalTokens: snap.TotalTokens,
		CostUSD:     snap.CostUSD,
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal run info: %w", err)
	}

	return s.cfg.DB.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(snap.SessionID), data)
	})
}

// Load implements Store.Load.
func (s *fileStore) Load(path string) (*Record, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotARecord, err)
	}
	if rec.File.Type != RecordType {
		return nil, fmt.Errorf("%w: file type %q", ErrNotARecord, rec.File.Type)
	}

	if newerSchema(rec.File.SchemaVersion, SchemaVersion) {
		return nil, fmt.Errorf("%w: record is %s, this build reads up to %s",
			ErrSchemaTooNew, rec.File.SchemaVersion, SchemaVersion)
	}

	return &rec, nil
}

// List implements Store.List.
func (s *fileStore) List() ([]RunInfo, error) {
	if s.cfg.DB == nil {
		return nil, nil
	}

	var runs []RunInfo
	err := s.cfg.DB.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(_, v []byte) error {
			var info RunInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("failed to unmarshal run info: %w", err)
			}
			runs = append(runs, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].SavedAt.After(runs[j].SavedAt)
	})
	return runs, nil
}

// newerSchema reports whether version a is newer than b, comparing
// numeric components and treating missing or malformed components as
// zero so old records always load.
func newerSchema(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var na, nb int
		if i < len(pa) {
			na, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			nb, _ = strconv.Atoi(pb[i])
		}
		if na != nb {
			return na > nb
		}
	}
	return false
}
