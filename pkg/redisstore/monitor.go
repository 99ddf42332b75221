package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
)

// MonitorCache caches monitor rows for the result pipeline, which looks a
// monitor up once per check.
type MonitorCache struct {
	c   *Client
	ttl time.Duration
}

func (c *Client) MonitorCache(ttl time.Duration) *MonitorCache {
	return &MonitorCache{c: c, ttl: ttl}
}

func monitorKey(id uuid.UUID) string {
	return fmt.Sprintf("monitor:%v", id.String())
}

func (mc *MonitorCache) SetMonitor(ctx context.Context, m monitor.Monitor) error {
	jsonM, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return mc.c.rdb.Set(ctx, monitorKey(m.ID), jsonM, mc.ttl).Err()
}

// AddMonitor caches m only if no entry exists.
func (mc *MonitorCache) AddMonitor(ctx context.Context, m monitor.Monitor) error {
	jsonM, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return mc.c.rdb.SetNX(ctx, monitorKey(m.ID), jsonM, mc.ttl).Err()
}

func (mc *MonitorCache) GetMonitor(ctx context.Context, id uuid.UUID) (monitor.Monitor, bool) {
	res, err := mc.c.rdb.Get(ctx, monitorKey(id)).Bytes()
	if err != nil {
		return monitor.Monitor{}, false
	}
	var m monitor.Monitor
	if err := json.Unmarshal(res, &m); err != nil {
		return monitor.Monitor{}, false
	}

	return m, true
}

func (mc *MonitorCache) DelMonitor(ctx context.Context, id uuid.UUID) error {
	return retry(ctx, 2, func() error {
		return mc.c.rdb.Del(ctx, monitorKey(id)).Err()
	})
}
