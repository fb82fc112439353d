package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
	"github.com/synaptica-ai/classifier/pkg/ml/linear"
)

const fileExt = ".model"

var (
	ErrModelNotFound = errors.New("model not found")
	ErrInvalidName   = errors.New("invalid model name")

	namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Store keeps serialized models as <dir>/<name>.model files. When a Redis
// client is supplied, blobs are also cached under model:<name>.
type Store struct {
	dir   string
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(dir string, client *redis.Client, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, redis: client, ttl: ttl}, nil
}

func ValidateName(name string) error {
	if !namePattern.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// Path returns the artifact path for name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Save writes the model through a temp file so readers never see a partial
// blob, then refreshes the cache.
func (s *Store) Save(ctx context.Context, name string, model *linear.Model) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	blob, err := model.MarshalBinary()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	path := s.Path(name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	s.cachePut(ctx, name, blob)
	logger.Log.WithFields(map[string]interface{}{
		"model":     name,
		"dimension": model.Dim(),
		"path":      path,
	}).Info("Model saved")
	return path, nil
}

func (s *Store) Load(ctx context.Context, name string) (*linear.Model, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if blob, ok := s.cacheGet(ctx, name); ok {
		model, err := linear.ReadModel(bytes.NewReader(blob))
		if err == nil {
			return model, nil
		}
		logger.Log.WithError(err).WithField("model", name).Warn("Discarding corrupt cached model")
		s.cacheDelete(ctx, name)
	}

	blob, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrModelNotFound)
	}
	if err != nil {
		return nil, err
	}
	model, err := linear.ReadModel(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", name, err)
	}
	s.cachePut(ctx, name, blob)
	return model, nil
}

// List returns the stored model names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.cacheDelete(ctx, name)
	err := os.Remove(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrModelNotFound)
	}
	return err
}

func cacheKey(name string) string {
	return fmt.Sprintf("model:%s", name)
}

func (s *Store) cachePut(ctx context.Context, name string, blob []byte) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(name), blob, s.ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("model", name).Warn("Failed to cache model")
	}
}

func (s *Store) cacheGet(ctx context.Context, name string) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	blob, err := s.redis.Get(ctx, cacheKey(name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).WithField("model", name).Warn("Model cache read failed")
		}
		return nil, false
	}
	return blob, true
}

func (s *Store) cacheDelete(ctx context.Context, name string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(name)).Err(); err != nil {
		logger.Log.WithError(err).WithField("model", name).Warn("Failed to evict cached model")
	}
}
