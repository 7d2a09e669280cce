// lookups.go lists the lookup tables constraining thermal events, with a
// short-lived cache in front of the read-mostly queries
package datastore

import (
	"context"
	"os/user"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/fusionvision/thermal-events-go/internal/errors"
)

// Lookup rows change rarely, so a few minutes of staleness is acceptable.
// Seeding flushes the cache.
const (
	lookupCacheTTL   = 5 * time.Minute
	lookupCacheSweep = 10 * time.Minute
)

// Cache keys for the lookup tables
const (
	cacheKeyUsers            = "users"
	cacheKeyDevices          = "devices"
	cacheKeyMethods          = "methods"
	cacheKeySeverityTypes    = "severity_types"
	cacheKeyCategories       = "categories"
	cacheKeyLinesOfSight     = "lines_of_sight"
	cacheKeyAnalysisStatuses = "analysis_statuses"
	cacheKeyDatasetIDs       = "dataset_ids"
	cacheKeyCompatiblePrefix = "compatible_lines_of_sight:"
)

// lookupCache wraps the shared cache with hit ratio accounting.
type lookupCache struct {
	cache   *cache.Cache
	metrics *Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

func newLookupCache(dbMetrics *Metrics) *lookupCache {
	return &lookupCache{
		cache:   cache.New(lookupCacheTTL, lookupCacheSweep),
		metrics: dbMetrics,
	}
}

func (lc *lookupCache) get(key string) (any, bool) {
	value, found := lc.cache.Get(key)
	if found {
		lc.hits.Add(1)
	} else {
		lc.misses.Add(1)
	}

	if lc.metrics != nil {
		result := "miss"
		if found {
			result = "hit"
		}
		lc.metrics.RecordCacheOperation("lookup", "get", result)
		lc.publishStats()
	}
	return value, found
}

func (lc *lookupCache) set(key string, value any) {
	lc.cache.Set(key, value, cache.DefaultExpiration)
	if lc.metrics != nil {
		lc.metrics.RecordCacheOperation("lookup", "set", "success")
		lc.publishStats()
	}
}

func (lc *lookupCache) flush() {
	lc.cache.Flush()
	if lc.metrics != nil {
		lc.metrics.RecordCacheOperation("lookup", "flush", "success")
		lc.publishStats()
	}
}

func (lc *lookupCache) publishStats() {
	hits := lc.hits.Load()
	misses := lc.misses.Load()
	ratio := 0.0
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	lc.metrics.UpdateCacheMetrics(lc.cache.ItemCount(), ratio)
}

// listNames retrieves the name column of a lookup table, ordered, through
// the cache.
func (ds *DataStore) listNames(ctx context.Context, model any, cacheKey string) ([]string, error) {
	if ds.lookups != nil {
		if cached, found := ds.lookups.get(cacheKey); found {
			if names, ok := cached.([]string); ok {
				return names, nil
			}
		}
	}

	var names []string
	if err := ds.DB.WithContext(ctx).Model(model).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, dbError(err, "list_lookup", errors.PriorityMedium, "lookup", cacheKey)
	}

	if ds.lookups != nil {
		ds.lookups.set(cacheKey, names)
	}
	return names, nil
}

// ListUsers retrieves the user names, sorted case-insensitively.
func (ds *DataStore) ListUsers(ctx context.Context) ([]string, error) {
	names, err := ds.listNames(ctx, &User{}, cacheKeyUsers)
	if err != nil {
		return nil, err
	}

	// Sort a copy so the cached slice keeps its canonical order
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i]) < strings.ToLower(sorted[j])
	})
	return sorted, nil
}

// ListDevices retrieves the device names.
func (ds *DataStore) ListDevices(ctx context.Context) ([]string, error) {
	return ds.listNames(ctx, &Device{}, cacheKeyDevices)
}

// ListMethods retrieves the detection and annotation method names.
func (ds *DataStore) ListMethods(ctx context.Context) ([]string, error) {
	return ds.listNames(ctx, &Method{}, cacheKeyMethods)
}

// ListSeverityTypes retrieves the severity names.
func (ds *DataStore) ListSeverityTypes(ctx context.Context) ([]string, error) {
	return ds.listNames(ctx, &Severity{}, cacheKeySeverityTypes)
}

// ListCategories retrieves the thermal event category names.
func (ds *DataStore) ListCategories(ctx context.Context) ([]string, error) {
	return ds.listNames(ctx, &Category{}, cacheKeyCategories)
}

// ListLinesOfSight retrieves the line of sight names.
func (ds *DataStore) ListLinesOfSight(ctx context.Context) ([]string, error) {
	return ds.listNames(ctx, &LineOfSight{}, cacheKeyLinesOfSight)
}

// ListAnalysisStatuses retrieves the analysis status names.
func (ds *DataStore) ListAnalysisStatuses(ctx context.Context) ([]string, error) {
	return ds.listNames(ctx, &AnalysisStatus{}, cacheKeyAnalysisStatuses)
}

// ListDatasetIDs retrieves the dataset ids, ascending.
func (ds *DataStore) ListDatasetIDs(ctx context.Context) ([]uint64, error) {
	if ds.lookups != nil {
		if cached, found := ds.lookups.get(cacheKeyDatasetIDs); found {
			if ids, ok := cached.([]uint64); ok {
				return ids, nil
			}
		}
	}

	var ids []uint64
	if err := ds.DB.WithContext(ctx).Model(&Dataset{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, dbError(err, "list_dataset_ids", errors.PriorityMedium)
	}

	if ds.lookups != nil {
		ds.lookups.set(cacheKeyDatasetIDs, ids)
	}
	return ids, nil
}

// CompatibleLinesOfSight retrieves the lines of sight on which the given
// category may occur.
func (ds *DataStore) CompatibleLinesOfSight(ctx context.Context, category string) ([]string, error) {
	if category == "" {
		return nil, validationError("category is empty", "category", category)
	}

	key := cacheKeyCompatiblePrefix + category
	if ds.lookups != nil {
		if cached, found := ds.lookups.get(key); found {
			if names, ok := cached.([]string); ok {
				return names, nil
			}
		}
	}

	var names []string
	err := ds.DB.WithContext(ctx).Model(&CategoryLineOfSight{}).
		Where("thermal_event_category = ?", category).
		Order("line_of_sight").
		Pluck("line_of_sight", &names).Error
	if err != nil {
		return nil, dbError(err, "compatible_lines_of_sight", errors.PriorityMedium,
			"category", category)
	}

	if ds.lookups != nil {
		ds.lookups.set(key, names)
	}
	return names, nil
}

// UserHasWriteRights reports whether the named user appears in the users
// table. An empty name resolves to the current OS user. Read rights equal
// write rights.
func (ds *DataStore) UserHasWriteRights(ctx context.Context, name string) (bool, error) {
	if name == "" {
		resolved, err := CurrentUserName()
		if err != nil {
			return false, err
		}
		name = resolved
	}

	var count int64
	if err := ds.DB.WithContext(ctx).Model(&User{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, dbError(err, "user_has_write_rights", errors.PriorityMedium, "user", name)
	}
	return count > 0, nil
}

// CurrentUserName resolves the name of the OS user running the process.
func CurrentUserName() (string, error) {
	current, err := user.Current()
	if err != nil {
		return "", errors.New(err).
			Component("datastore").
			Category(errors.CategoryState).
			Context("operation", "current_user_name").
			Build()
	}
	return current.Username, nil
}
