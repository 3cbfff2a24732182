// cache.go — LRU-кэш кодов классификации с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	codeCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ar_code_cache_hits_total",
		Help: "Общее количество попаданий в кэш кодов классификации.",
	})
	codeCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ar_code_cache_misses_total",
		Help: "Общее количество промахов кэша кодов классификации.",
	})
)

// CodeCache — кэш кодов классификации по значению кода.
// Записи хранятся копиями: вызывающий код не может изменить кэш.
type CodeCache struct {
	cache *expirable.LRU[string, model.ClassificationCode]
}

// NewCodeCache создаёт кэш с максимальным размером maxSize и временем жизни ttl.
func NewCodeCache(maxSize int, ttl time.Duration) *CodeCache {
	return &CodeCache{cache: expirable.NewLRU[string, model.ClassificationCode](maxSize, nil, ttl)}
}

// Get возвращает копию кода из кэша.
func (c *CodeCache) Get(code string) (*model.ClassificationCode, bool) {
	val, ok := c.cache.Get(code)
	if !ok {
		codeCacheMissesTotal.Inc()
		return nil, false
	}
	codeCacheHitsTotal.Inc()
	return &val, true
}

// Set добавляет или обновляет запись.
func (c *CodeCache) Set(cc *model.ClassificationCode) {
	c.cache.Add(cc.Code, *cc)
}

// Delete удаляет запись.
func (c *CodeCache) Delete(code string) {
	c.cache.Remove(code)
}

// Purge очищает кэш целиком.
func (c *CodeCache) Purge() {
	c.cache.Purge()
}

// Len возвращает количество записей.
func (c *CodeCache) Len() int {
	return c.cache.Len()
}
