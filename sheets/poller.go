package sheets

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval = time.Second
	inactivityTimeout   = time.Minute
)

// Poller periodically fetches every subscribed sheet into the cache.
// It goes idle when no request has touched it for a minute, so an
// abandoned server stops burning API quota.
type Poller struct {
	client  *Client
	cache   *Cache
	metrics *Metrics
	log     *zap.Logger

	interval time.Duration

	mu           sync.Mutex
	subs         map[string]map[string]struct{}
	lastActivity time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(client *Client, cache *Cache, metrics *Metrics, log *zap.Logger) *Poller {
	return &Poller{
		client:   client,
		cache:    cache,
		metrics:  metrics,
		log:      log,
		interval: defaultPollInterval,
		subs:     make(map[string]map[string]struct{}),
	}
}

// Subscribe registers a sheet for background polling and counts as
// activity.
func (p *Poller) Subscribe(spreadsheetID, gid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs[spreadsheetID] == nil {
		p.subs[spreadsheetID] = make(map[string]struct{})
	}
	p.subs[spreadsheetID][gid] = struct{}{}
	p.lastActivity = time.Now()
	p.log.Debug("subscribed sheet",
		zap.String("spreadsheetId", spreadsheetID),
		zap.String("gid", gid))
}

// Touch refreshes the activity window without subscribing anything.
func (p *Poller) Touch() {
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()
}

func (p *Poller) SubscriptionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, gids := range p.subs {
		n += len(gids)
	}
	return n
}

// Active reports whether the poller saw activity within the timeout.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastActivity) < inactivityTimeout
}

func (p *Poller) Start() {
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx)
	p.log.Info("background poller started")
}

func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.log.Info("background poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.Active() {
				continue
			}
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	p.mu.Lock()
	snapshot := make(map[string][]string, len(p.subs))
	for id, gids := range p.subs {
		for gid := range gids {
			snapshot[id] = append(snapshot[id], gid)
		}
	}
	p.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for id, gids := range snapshot {
		id, gids := id, gids
		g.Go(func() error {
			data, err := p.client.FetchSheets(ctx, id, gids)
			if err != nil {
				p.metrics.RecordError()
				p.log.Warn("poll failed", zap.String("spreadsheetId", id), zap.Error(err))
				return nil
			}
			p.metrics.RecordGoogleRequest(id)
			for gid, sheet := range data {
				p.cache.Set(id, gid, sheet)
			}
			return nil
		})
	}
	_ = g.Wait()
}
