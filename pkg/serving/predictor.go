package serving

import (
	"context"
	"sync"
	"time"

	"github.com/synaptica-ai/classifier/pkg/ml/linear"
	"github.com/synaptica-ai/classifier/pkg/observability/metrics"
)

type ModelLoader interface {
	Load(ctx context.Context, name string) (*linear.Model, error)
}

// Predictor serves classifications from models kept in memory for ttl.
// Cached models are only ever read, so Classify may run concurrently.
type Predictor struct {
	loader      ModelLoader
	ttl         time.Duration
	now         func() time.Time
	cache       map[string]cachedModel
	// generations counts invalidations per name; a load that started before
	// the latest Invalidate must not repopulate the cache.
	generations map[string]uint64
	mu          sync.RWMutex
}

type cachedModel struct {
	model    *linear.Model
	loadedAt time.Time
}

// NewPredictor caches forever when ttl is zero.
func NewPredictor(loader ModelLoader, ttl time.Duration) *Predictor {
	return &Predictor{
		loader:      loader,
		ttl:         ttl,
		now:         time.Now,
		cache:       make(map[string]cachedModel),
		generations: make(map[string]uint64),
	}
}

func (p *Predictor) Classify(ctx context.Context, name string, features []float32) (linear.Result, error) {
	model, err := p.model(ctx, name)
	if err != nil {
		metrics.PredictionFailed()
		return linear.Result{}, err
	}
	result, err := model.Classify(features)
	if err != nil {
		metrics.PredictionFailed()
		return linear.Result{}, err
	}
	metrics.PredictionServed()
	return result, nil
}

// Invalidate drops name from the cache so the next call reloads it.
func (p *Predictor) Invalidate(name string) {
	p.mu.Lock()
	delete(p.cache, name)
	p.generations[name]++
	p.mu.Unlock()
}

func (p *Predictor) model(ctx context.Context, name string) (*linear.Model, error) {
	p.mu.RLock()
	cached, ok := p.cache[name]
	generation := p.generations[name]
	p.mu.RUnlock()
	if ok && (p.ttl == 0 || p.now().Sub(cached.loadedAt) < p.ttl) {
		metrics.PredictorCacheHit()
		return cached.model, nil
	}
	metrics.PredictorCacheMiss()

	model, err := p.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if p.generations[name] == generation {
		p.cache[name] = cachedModel{model: model, loadedAt: p.now()}
	}
	p.mu.Unlock()
	return model, nil
}
