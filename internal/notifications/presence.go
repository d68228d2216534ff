package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"safeguard/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOnlineSetKey   = "ws:online_users"
	defaultLastSeenPrefix = "ws:last_seen:"
	defaultLastSeenTTL    = 90 * time.Second
	defaultOfflineGrace   = 5 * time.Second
	defaultReaperInterval = 60 * time.Second
)

// PresenceConfig controls the Redis presence mirror.
type PresenceConfig struct {
	LastSeenTTL    time.Duration
	OfflineGrace   time.Duration
	ReaperInterval time.Duration
	OnOffline      func(userID uint)
}

// Presence mirrors locally connected users into Redis so that every process
// can answer "is this user online". Offline transitions wait a grace period
// so that a quick reconnect does not flap.
type Presence struct {
	rdb *redis.Client

	mu            sync.Mutex
	local         map[uint]struct{}
	offlineTimers map[uint]*time.Timer

	lastSeenTTL    time.Duration
	offlineGrace   time.Duration
	reaperInterval time.Duration
	onOffline      func(userID uint)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence starts the stale-entry reaper when Redis is available.
func NewPresence(rdb *redis.Client, cfg PresenceConfig) *Presence {
	p := &Presence{
		rdb:            rdb,
		local:          make(map[uint]struct{}),
		offlineTimers:  make(map[uint]*time.Timer),
		lastSeenTTL:    defaultLastSeenTTL,
		offlineGrace:   defaultOfflineGrace,
		reaperInterval: defaultReaperInterval,
		onOffline:      cfg.OnOffline,
		stopCh:         make(chan struct{}),
	}
	if cfg.LastSeenTTL > 0 {
		p.lastSeenTTL = cfg.LastSeenTTL
	}
	if cfg.OfflineGrace > 0 {
		p.offlineGrace = cfg.OfflineGrace
	}
	if cfg.ReaperInterval > 0 {
		p.reaperInterval = cfg.ReaperInterval
	}
	if p.rdb != nil {
		go p.reaperLoop()
	}
	return p
}

func (p *Presence) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.mu.Lock()
		for id, t := range p.offlineTimers {
			t.Stop()
			delete(p.offlineTimers, id)
		}
		p.mu.Unlock()
	})
}

// MarkOnline records a local connection for userID.
func (p *Presence) MarkOnline(ctx context.Context, userID uint) {
	p.mu.Lock()
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
		delete(p.offlineTimers, userID)
	}
	p.local[userID] = struct{}{}
	p.mu.Unlock()

	p.Touch(ctx, userID)
}

// Touch refreshes the user's last-seen key.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, defaultOnlineSetKey, uid)
	pipe.SetEx(ctx, lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), p.lastSeenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "presence touch failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}

// MarkOffline schedules the offline transition after the grace period.
func (p *Presence) MarkOffline(userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.local, userID)
	if t, ok := p.offlineTimers[userID]; ok {
		t.Stop()
	}
	p.offlineTimers[userID] = time.AfterFunc(p.offlineGrace, func() {
		p.finalizeOffline(context.Background(), userID)
	})
}

// IsOnline reports a local connection or a live last-seen key written by
// any process.
func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	p.mu.Lock()
	_, ok := p.local[userID]
	p.mu.Unlock()
	if ok {
		return true
	}
	if p.rdb == nil {
		return false
	}
	n, err := p.rdb.Exists(ctx, lastSeenKey(userID)).Result()
	return err == nil && n > 0
}

func (p *Presence) finalizeOffline(ctx context.Context, userID uint) {
	p.mu.Lock()
	delete(p.offlineTimers, userID)
	_, back := p.local[userID]
	cb := p.onOffline
	p.mu.Unlock()
	if back {
		return
	}

	if p.rdb != nil {
		_ = p.rdb.Del(ctx, lastSeenKey(userID)).Err()
		_ = p.rdb.SRem(ctx, defaultOnlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
	}
	if cb != nil {
		cb(userID)
	}
}

// reapOnce drops online-set members whose last-seen key expired, which
// happens when a process dies without disconnecting its users.
func (p *Presence) reapOnce(ctx context.Context) int {
	if p.rdb == nil {
		return 0
	}
	members, err := p.rdb.SMembers(ctx, defaultOnlineSetKey).Result()
	if err != nil {
		return 0
	}
	reaped := 0
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		n, err := p.rdb.Exists(ctx, lastSeenKey(uint(id))).Result()
		if err != nil || n > 0 {
			continue
		}
		_ = p.rdb.SRem(ctx, defaultOnlineSetKey, raw).Err()
		reaped++
	}
	return reaped
}

func (p *Presence) reaperLoop() {
	ticker := time.NewTicker(p.reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(context.Background())
		}
	}
}

func lastSeenKey(userID uint) string {
	return defaultLastSeenPrefix + strconv.FormatUint(uint64(userID), 10)
}
