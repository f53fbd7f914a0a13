// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package muxdb

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/qianbin/directcache"
	"github.com/vechain/blockexec/cache"
)

// nodeCache caches trie node blobs keyed by node hash.
// A nil *nodeCache is valid and caches nothing.
type nodeCache struct {
	blobs       atomic.Pointer[directcache.Cache]
	sizeBytes   int
	stats       cache.Stats
	lastLogTime atomic.Int64
}

// newNodeCache creates a node cache with the given size. It returns nil if size is not positive.
func newNodeCache(sizeMB int) *nodeCache {
	if sizeMB <= 0 {
		return nil
	}
	c := &nodeCache{sizeBytes: sizeMB * 1024 * 1024}
	c.blobs.Store(directcache.New(c.sizeBytes))
	c.lastLogTime.Store(time.Now().UnixNano())
	return c
}

// Add adds the node blob into the cache.
func (c *nodeCache) Add(hash, blob []byte) {
	if c == nil {
		return
	}
	_ = c.blobs.Load().Set(hash, blob)
}

// Get returns the cached node blob, or nil if missed.
func (c *nodeCache) Get(hash []byte) []byte {
	if c == nil {
		return nil
	}
	var blob []byte
	if c.blobs.Load().AdvGet(hash, func(val []byte) {
		blob = slices.Clone(val)
	}, false) && len(blob) > 0 {
		if c.stats.Hit()%2000 == 0 {
			c.log()
		}
		return blob
	}
	c.stats.Miss()
	return nil
}

// Reset drops all cached blobs. It's called after nodes are deleted.
func (c *nodeCache) Reset() {
	if c == nil {
		return
	}
	c.blobs.Store(directcache.New(c.sizeBytes))
}

func (c *nodeCache) log() {
	now := time.Now().UnixNano()
	last := c.lastLogTime.Swap(now)

	if now-last > int64(time.Second*20) {
		changed, hit, miss := c.stats.Stats()
		if changed {
			logStats("node cache stats", hit, miss)
		}
		// metrics will reported every 20 seconds
		metricCacheHitMiss().SetWithLabel(hit, map[string]string{"type": "node", "event": "hit"})
		metricCacheHitMiss().SetWithLabel(miss, map[string]string{"type": "node", "event": "miss"})
	} else {
		c.lastLogTime.CompareAndSwap(now, last)
	}
}

func logStats(msg string, hit, miss int64) {
	rate := "n/a"
	if hit+miss > 0 {
		rate = fmt.Sprintf("%.3f", cache.HitRate(hit, miss))
	}
	logger.Info(msg, "lookups", hit+miss, "hitrate", rate)
}
