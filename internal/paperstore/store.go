// Package paperstore serves immutable exam paper documents. Papers are JSON
// files in a configured directory, loaded once at startup and treated as
// trusted and internally consistent. The answer-free candidate payload is
// cached in Redis with an in-memory fallback.
package paperstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/prepgrid/testprep-backend/internal/config"
	"github.com/prepgrid/testprep-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrPaperNotFound is returned when no paper matches the requested id.
var ErrPaperNotFound = errors.New("paper not found")

// Store is the in-process catalog of exam papers.
type Store struct {
	dir string
	rdb *redis.Client
	log zerolog.Logger

	mu     sync.RWMutex
	papers map[string]*model.Paper
	order  []string
}

// New creates a Store over a paper directory. Call Load before serving.
func New(dir string, rdb *redis.Client, log zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		rdb:    rdb,
		log:    log.With().Str("component", "paperstore").Logger(),
		papers: make(map[string]*model.Paper),
	}
}

// Load reads every *.json paper in the directory into memory. Files that
// fail to parse are skipped with a warning; a missing directory is an error.
func (s *Store) Load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read paper dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.papers = make(map[string]*model.Paper)
	s.order = nil

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable paper file")
			continue
		}

		var paper model.Paper
		if err := json.Unmarshal(raw, &paper); err != nil {
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping malformed paper file")
			continue
		}
		if paper.PaperID == "" {
			s.log.Warn().Str("file", entry.Name()).Msg("Skipping paper without paper_id")
			continue
		}

		s.papers[paper.PaperID] = &paper
		s.order = append(s.order, paper.PaperID)
	}

	// Newest papers first in the catalog.
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.papers[s.order[i]].Year > s.papers[s.order[j]].Year
	})

	s.log.Info().Int("count", len(s.papers)).Str("dir", s.dir).Msg("Papers loaded")
	return nil
}

// List returns catalog entries for every loaded paper.
func (s *Store) List() []model.PaperInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PaperInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.papers[id].Info())
	}
	return out
}

// Get returns the full paper (with answers) for server-side use.
func (s *Store) Get(paperID string) (*model.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paper, ok := s.papers[paperID]
	if !ok {
		return nil, ErrPaperNotFound
	}
	return paper, nil
}

// StudentPayload returns the answer-free paper payload for candidates,
// served from the Redis cache when possible. A cache miss (or any Redis
// error) falls back to the in-memory paper and self-heals the cache.
func (s *Store) StudentPayload(ctx context.Context, paperID string) (*model.StudentPaper, error) {
	key := config.CacheKey.PaperPayloadKey(paperID)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var payload model.StudentPaper
		if jsonErr := json.Unmarshal([]byte(raw), &payload); jsonErr == nil {
			return &payload, nil
		}
		// Corrupt cache entry: rebuild below.
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("paper_id", paperID).Msg("Redis payload read failed, using memory")
	}

	paper, err := s.Get(paperID)
	if err != nil {
		return nil, err
	}
	payload := model.NewStudentPaper(paper)

	if raw, err := json.Marshal(payload); err == nil {
		if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
			s.log.Warn().Err(err).Str("paper_id", paperID).Msg("Payload cache write failed")
		}
	}

	return payload, nil
}

// Prewarm caches every paper's candidate payload in Redis. Called once at
// boot so the first wave of candidates never races the lazy fill.
func (s *Store) Prewarm(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	for _, id := range ids {
		if _, err := s.StudentPayload(ctx, id); err != nil {
			return fmt.Errorf("prewarm paper %s: %w", id, err)
		}
	}

	s.log.Info().Int("count", len(ids)).Msg("Paper payload cache prewarmed")
	return nil
}
