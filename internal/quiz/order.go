package quiz

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"github.com/voxquiz/voxquiz/internal/kv"
)

// OrderTTL is how long a persisted shuffle stays valid. A reload inside
// the window sees the same order; anything else gets a fresh shuffle.
const OrderTTL = 2 * time.Hour

type cachedOrder struct {
	Order     []string `json:"order"`
	Timestamp int64    `json:"timestamp"`
}

// OrderCache persists one shuffled id sequence per subtopic key in an
// injected kv.Store. Store failures and corrupt entries degrade to a
// cache miss; they never abort quiz loading.
type OrderCache struct {
	store kv.Store
	rnd   *rand.Rand
	now   func() time.Time
}

func NewOrderCache(store kv.Store, rnd *rand.Rand) *OrderCache {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &OrderCache{store: store, rnd: rnd, now: time.Now}
}

// Order returns the question id sequence for subtopicKey. The stored
// order is reused when it is fresh and its count matches ids; otherwise
// a new uniform shuffle is generated and persisted.
func (c *OrderCache) Order(ctx context.Context, subtopicKey string, ids []string) []string {
	if stored, ok := c.lookup(ctx, subtopicKey, len(ids)); ok {
		return filterKnown(stored, ids)
	}
	order := append([]string{}, ids...)
	c.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	c.persist(ctx, subtopicKey, order)
	return order
}

// Clear drops the cached order, called after a successful submission.
func (c *OrderCache) Clear(ctx context.Context, subtopicKey string) {
	if err := c.store.Delete(ctx, cacheKey(subtopicKey)); err != nil {
		log.Printf("order cache: clear %q: %v", subtopicKey, err)
	}
}

func (c *OrderCache) lookup(ctx context.Context, subtopicKey string, wantCount int) ([]string, bool) {
	raw, err := c.store.Get(ctx, cacheKey(subtopicKey))
	if err != nil {
		if err != kv.ErrNotFound {
			log.Printf("order cache: read %q: %v", subtopicKey, err)
		}
		return nil, false
	}
	var entry cachedOrder
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Printf("order cache: corrupt entry for %q: %v", subtopicKey, err)
		return nil, false
	}
	if len(entry.Order) != wantCount {
		return nil, false
	}
	if c.now().Sub(time.Unix(entry.Timestamp, 0)) > OrderTTL {
		return nil, false
	}
	return entry.Order, true
}

func (c *OrderCache) persist(ctx context.Context, subtopicKey string, order []string) {
	b, err := json.Marshal(cachedOrder{Order: order, Timestamp: c.now().Unix()})
	if err != nil {
		log.Printf("order cache: marshal %q: %v", subtopicKey, err)
		return
	}
	if err := c.store.Set(ctx, cacheKey(subtopicKey), string(b)); err != nil {
		log.Printf("order cache: write %q: %v", subtopicKey, err)
	}
}

// filterKnown keeps only ids that still exist, preserving stored order.
func filterKnown(order, ids []string) []string {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	out := make([]string, 0, len(order))
	for _, id := range order {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

func cacheKey(subtopic string) string { return "quiz_order:" + subtopic }
