package bitrix

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"ledger/pkg/logger"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	// DealEntityTypeID is the universal-category entity type of deals.
	DealEntityTypeID = 2

	DefaultCategoryTTL = 10 * time.Minute

	// DefaultGeneralCategoryName labels category "0", the pipeline every
	// portal has without it appearing in either dictionary.
	DefaultGeneralCategoryName = "General"
)

// CategorySnapshot is one full load of both category dictionaries.
// LoadedAt is when the portal was actually queried; zero means "just now".
type CategorySnapshot struct {
	Legacy    map[string]string `json:"legacy"`
	Universal map[string]string `json:"universal"`
	LoadedAt  time.Time         `json:"loaded_at,omitempty"`
}

func (s CategorySnapshot) Empty() bool {
	return len(s.Legacy) == 0 && len(s.Universal) == 0
}

// CategorySource loads a snapshot. Implementations never fail: an
// unavailable dictionary is simply empty.
type CategorySource interface {
	LoadCategories(ctx context.Context) CategorySnapshot
}

// CRMCategorySource loads both dictionaries from the portal.
type CRMCategorySource struct {
	caller Caller
}

func NewCRMCategorySource(caller Caller) *CRMCategorySource {
	return &CRMCategorySource{caller: caller}
}

func (s *CRMCategorySource) LoadCategories(ctx context.Context) CategorySnapshot {
	return CategorySnapshot{
		Legacy:    s.load(ctx, "crm.dealcategory.list", nil),
		Universal: s.load(ctx, "crm.category.list", Params{"entityTypeId": DealEntityTypeID}),
	}
}

func (s *CRMCategorySource) load(ctx context.Context, method string, params Params) map[string]string {
	out := map[string]string{}
	raw, ok := s.caller.SafeCall(ctx, method, params).Get()
	if !ok {
		return out
	}
	for _, item := range decodeCategoryList(raw) {
		id, name := categoryID(item), categoryLabel(item)
		if id == "" || name == "" {
			continue
		}
		out[id] = name
	}
	return out
}

// decodeCategoryList accepts a bare array or {"categories": [...]}.
func decodeCategoryList(raw json.RawMessage) []Record {
	var list []Record
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var wrapped struct {
		Categories []Record `json:"categories"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Categories
	}
	return nil
}

func categoryID(r Record) string {
	if v, ok := r["ID"]; ok && v != nil {
		return strings.TrimSpace(cast.ToString(v))
	}
	return strings.TrimSpace(cast.ToString(r["id"]))
}

func categoryLabel(r Record) string {
	if name := r.String("NAME"); name != "" {
		return name
	}
	return r.String("name")
}

type categoryStrategy struct {
	name    string
	resolve func(ctx context.Context, key string) Optional[string]
}

// CategoryResolver maps deal category ids to names. It keeps a snapshot of
// both dictionaries that is reloaded wholesale once it is older than the TTL.
// Concurrent stale lookups may reload in parallel; the last one wins.
type CategoryResolver struct {
	caller      Caller
	source      CategorySource
	ttl         time.Duration
	generalName string
	now         func() time.Time

	mu       sync.RWMutex
	snapshot CategorySnapshot
	loadedAt time.Time

	strategies []categoryStrategy
}

type CategoryOption func(*CategoryResolver)

func WithClock(now func() time.Time) CategoryOption {
	return func(r *CategoryResolver) { r.now = now }
}

func WithCategoryTTL(ttl time.Duration) CategoryOption {
	return func(r *CategoryResolver) { r.ttl = ttl }
}

func WithGeneralName(name string) CategoryOption {
	return func(r *CategoryResolver) {
		if strings.TrimSpace(name) != "" {
			r.generalName = name
		}
	}
}

func WithCategorySource(src CategorySource) CategoryOption {
	return func(r *CategoryResolver) { r.source = src }
}

func NewCategoryResolver(caller Caller, opts ...CategoryOption) *CategoryResolver {
	r := &CategoryResolver{
		caller:      caller,
		ttl:         DefaultCategoryTTL,
		generalName: DefaultGeneralCategoryName,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.source == nil {
		r.source = NewCRMCategorySource(caller)
	}
	r.strategies = []categoryStrategy{
		{"cached-legacy", r.cachedLegacy},
		{"cached-universal", r.cachedUniversal},
		{"direct-legacy", r.directLegacy},
		{"direct-universal", r.directUniversal},
		{"default", r.general},
	}
	return r
}

// CategoryName resolves id to a display name. It never returns an error;
// an unknown id is None.
func (r *CategoryResolver) CategoryName(ctx context.Context, id any) Optional[string] {
	key, ok := categoryKey(id)
	if !ok {
		return None[string]()
	}
	r.ensureFresh(ctx)
	for _, s := range r.strategies {
		if name, ok := s.resolve(ctx, key).Get(); ok {
			logger.FromContext(ctx).Debug("category resolved",
				zap.String("category_id", key), zap.String("strategy", s.name))
			return Some(name)
		}
	}
	return None[string]()
}

// Reload replaces the snapshot regardless of its age. Freshness counts from
// the snapshot's own load time, so a shared snapshot does not live longer
// than one TTL.
func (r *CategoryResolver) Reload(ctx context.Context) {
	snap := r.source.LoadCategories(ctx)
	if snap.Legacy == nil {
		snap.Legacy = map[string]string{}
	}
	if snap.Universal == nil {
		snap.Universal = map[string]string{}
	}
	now := r.now()
	loadedAt := snap.LoadedAt
	if loadedAt.IsZero() || loadedAt.After(now) {
		loadedAt = now
	}
	r.mu.Lock()
	r.snapshot = snap
	r.loadedAt = loadedAt
	r.mu.Unlock()
}

// Snapshot returns the cached dictionaries as last loaded.
func (r *CategoryResolver) Snapshot() CategorySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *CategoryResolver) ensureFresh(ctx context.Context) {
	r.mu.RLock()
	fresh := !r.loadedAt.IsZero() && r.now().Sub(r.loadedAt) < r.ttl
	r.mu.RUnlock()
	if !fresh {
		r.Reload(ctx)
	}
}

func categoryKey(id any) (string, bool) {
	if id == nil {
		return "", false
	}
	key := strings.TrimSpace(cast.ToString(id))
	return key, key != ""
}

func (r *CategoryResolver) cached(pick func(CategorySnapshot) map[string]string, key string) Optional[string] {
	r.mu.RLock()
	name := pick(r.snapshot)[key]
	r.mu.RUnlock()
	if name == "" {
		return None[string]()
	}
	return Some(name)
}

func (r *CategoryResolver) cachedLegacy(_ context.Context, key string) Optional[string] {
	return r.cached(func(s CategorySnapshot) map[string]string { return s.Legacy }, key)
}

func (r *CategoryResolver) cachedUniversal(_ context.Context, key string) Optional[string] {
	return r.cached(func(s CategorySnapshot) map[string]string { return s.Universal }, key)
}

func (r *CategoryResolver) directLegacy(ctx context.Context, key string) Optional[string] {
	raw, ok := r.caller.SafeCall(ctx, "crm.dealcategory.get", Params{"ID": key}).Get()
	if !ok {
		return None[string]()
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return None[string]()
	}
	if name := categoryLabel(rec); name != "" {
		return Some(name)
	}
	return None[string]()
}

func (r *CategoryResolver) directUniversal(ctx context.Context, key string) Optional[string] {
	raw, ok := r.caller.SafeCall(ctx, "crm.category.get",
		Params{"entityTypeId": DealEntityTypeID, "id": key}).Get()
	if !ok {
		return None[string]()
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return None[string]()
	}
	if nested, ok := rec["category"].(map[string]any); ok {
		rec = Record(nested)
	}
	if name := categoryLabel(rec); name != "" {
		return Some(name)
	}
	return None[string]()
}

func (r *CategoryResolver) general(_ context.Context, key string) Optional[string] {
	if key == "0" {
		return Some(r.generalName)
	}
	return None[string]()
}
