package seo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

const (
	DefaultChunkSize  = 5
	DefaultChunkPause = time.Second
	DefaultCacheTTL   = 24 * time.Hour

	// NoChunkPause disables the pause between chunks; a zero ChunkPause means
	// DefaultChunkPause.
	NoChunkPause time.Duration = -1
)

// Optimizer rewrites project text through a TextGenerator and falls back to
// BasicOptimization whenever the generator is missing, fails or replies badly.
type Optimizer struct {
	Generator  TextGenerator
	Logger     *log.Logger
	ChunkSize  int
	ChunkPause time.Duration
	CacheTTL   time.Duration

	once  sync.Once
	cache *cache.Cache
}

func NewOptimizer(gen TextGenerator, logger *log.Logger) *Optimizer {
	o := &Optimizer{Generator: gen, Logger: logger}
	o.EnsureDefaults()
	return o
}

func (o *Optimizer) EnsureDefaults() {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkPause == 0 {
		o.ChunkPause = DefaultChunkPause
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	o.once.Do(func() {
		o.cache = cache.New(o.CacheTTL, time.Hour)
	})
}

// Enabled reports whether a generator is wired.
func (o *Optimizer) Enabled() bool {
	return o != nil && o.Generator != nil
}

func cacheKey(req Request) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// OptimizeContent never fails; errors degrade to the fallback content.
func (o *Optimizer) OptimizeContent(ctx context.Context, req Request) Content {
	o.EnsureDefaults()
	req = req.normalized()
	if o.Generator == nil {
		return BasicOptimization(req)
	}

	key := cacheKey(req)
	if v, ok := o.cache.Get(key); ok {
		return v.(Content)
	}

	start := time.Now()
	reply, err := o.Generator.Complete(ctx, systemPrompt(req.Language), buildPrompt(req))
	if err != nil {
		o.Logger.Printf("[SEO] generator failed title=%q dur=%s err=%v", truncateLog(req.Title), time.Since(start), err)
		return BasicOptimization(req)
	}
	content, err := parseReply(reply, req)
	if err != nil {
		o.Logger.Printf("[SEO] reply rejected title=%q replyLen=%d err=%v", truncateLog(req.Title), len(reply), err)
		return BasicOptimization(req)
	}
	o.cache.Set(key, content, cache.DefaultExpiration)
	return content
}

// safeOptimize turns a panic inside the generator into a fallback for that item.
func (o *Optimizer) safeOptimize(ctx context.Context, req Request) (out Content) {
	defer func() {
		if r := recover(); r != nil {
			o.Logger.Printf("[SEO] recovered panic title=%q err=%v", truncateLog(req.Title), r)
			out = BasicOptimization(req)
		}
	}()
	return o.OptimizeContent(ctx, req)
}

// BatchOptimize returns one Content per request, in input order. Requests run
// concurrently within a chunk with a pause between chunks. Once ctx is done the
// remaining items get the fallback directly.
func (o *Optimizer) BatchOptimize(ctx context.Context, reqs []Request) []Content {
	o.EnsureDefaults()
	out := make([]Content, len(reqs))
	for start := 0; start < len(reqs); start += o.ChunkSize {
		end := start + o.ChunkSize
		if end > len(reqs) {
			end = len(reqs)
		}

		if ctx.Err() != nil {
			for i := start; i < len(reqs); i++ {
				out[i] = BasicOptimization(reqs[i])
			}
			return out
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out[i] = o.safeOptimize(ctx, reqs[i])
			}(i)
		}
		wg.Wait()

		if end < len(reqs) && o.ChunkPause > 0 {
			t := time.NewTimer(o.ChunkPause)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
	return out
}

func truncateLog(s string) string {
	if len(s) > 60 {
		return s[:60]
	}
	return s
}
