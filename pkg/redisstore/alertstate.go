package redisstore

import (
	"context"
	"fmt"
	"time"

	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/status"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimScript sets a claim field once and refreshes the key's ttl.
const claimScript = `
local added = redis.call("HSETNX", KEYS[1], ARGV[1], "1")
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return added
`

const (
	fieldLastStatus        = "last_status"
	fieldIncidentID        = "incident_id"
	fieldIncidentStartedAt = "incident_started_at"
)

// AlertStateStore keeps alert state in two hashes per monitor, one for the
// state and one for claimed dedup keys. Both expire after ttl of inactivity.
type AlertStateStore struct {
	c   *Client
	ttl time.Duration
}

func (c *Client) AlertStateStore(ttl time.Duration) *AlertStateStore {
	return &AlertStateStore{c: c, ttl: ttl}
}

func stateKey(monitorID uuid.UUID) string {
	return fmt.Sprintf("monitor:alert:%v", monitorID)
}

func claimsKey(monitorID uuid.UUID) string {
	return fmt.Sprintf("monitor:alert:claims:%v", monitorID)
}

func (s *AlertStateStore) Load(ctx context.Context, monitorID uuid.UUID) (alert.State, error) {
	var fields map[string]string
	err := retry(ctx, 3, func() error {
		var err error
		fields, err = s.c.rdb.HGetAll(ctx, stateKey(monitorID)).Result()
		return err
	})
	if err != nil {
		return alert.State{}, err
	}
	// HGETALL answers a missing key with an empty map
	if len(fields) == 0 {
		return alert.State{}, nil
	}

	st := alert.State{LastStatus: status.Status(fields[fieldLastStatus])}

	if raw := fields[fieldIncidentID]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return alert.State{}, fmt.Errorf("corrupt incident id %q: %w", raw, err)
		}
		st.IncidentID = &id
	}
	if raw := fields[fieldIncidentStartedAt]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return alert.State{}, fmt.Errorf("corrupt incident start %q: %w", raw, err)
		}
		st.IncidentStartedAt = &ts
	}
	return st, nil
}

func (s *AlertStateStore) Save(ctx context.Context, monitorID uuid.UUID, st alert.State) error {
	key := stateKey(monitorID)

	return retry(ctx, 3, func() error {
		_, err := s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldLastStatus, string(st.LastStatus))
			if st.IncidentID != nil && st.IncidentStartedAt != nil {
				pipe.HSet(ctx, key,
					fieldIncidentID, st.IncidentID.String(),
					fieldIncidentStartedAt, st.IncidentStartedAt.UTC().Format(time.RFC3339Nano),
				)
			} else {
				pipe.HDel(ctx, key, fieldIncidentID, fieldIncidentStartedAt)
			}
			pipe.PExpire(ctx, key, s.ttl)
			return nil
		})
		return err
	})
}

func (s *AlertStateStore) Claim(ctx context.Context, monitorID uuid.UUID, key string) (bool, error) {
	var added int64
	err := retry(ctx, 3, func() error {
		var err error
		added, err = s.c.rdb.Eval(ctx, claimScript, []string{claimsKey(monitorID)}, key, s.ttl.Milliseconds()).Int64()
		return err
	})
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

func (s *AlertStateStore) Claimed(ctx context.Context, monitorID uuid.UUID, key string) (bool, error) {
	var ok bool
	err := retry(ctx, 3, func() error {
		var err error
		ok, err = s.c.rdb.HExists(ctx, claimsKey(monitorID), key).Result()
		return err
	})
	return ok, err
}

func (s *AlertStateStore) Clear(ctx context.Context, monitorID uuid.UUID) error {
	return retry(ctx, 2, func() error {
		return s.c.rdb.Del(ctx, stateKey(monitorID), claimsKey(monitorID)).Err()
	})
}
