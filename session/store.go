package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when a root session does not exist or has expired.
var ErrNotFound = errors.New("authentication session not found")

// ErrTabNotFound is returned when a tab id has no entry under its root.
var ErrTabNotFound = errors.New("tab session not found")

// ErrConflict is returned after a mutation loses the optimistic-lock race
// more times than the retry budget allows.
var ErrConflict = errors.New("concurrent session mutation conflict")

const mutateMaxRetries = 4

const minTTL = time.Second

// removeRootScript deletes the session blob and removes the root id from
// every user index that referenced it, in one atomic step. Safe to run
// concurrently with an in-flight request holding the same id: once it runs,
// no subsequent read can resurrect the session.
const removeRootScript = `
redis.call("DEL", KEYS[1])
for i = 2, #KEYS do
  redis.call("SREM", KEYS[i], ARGV[1])
end
return 1
`

var removeRootLua = redis.NewScript(removeRootScript)

// Store keeps root authentication sessions in Redis, keyed by realm and root
// id, with a per-user set index supporting sibling-session enumeration. All
// per-root mutations go through optimistic WATCH transactions so concurrent
// request workers never lose updates silently.
type Store struct {
	redis       redis.UniversalClient
	prefix      string
	maxLifespan time.Duration
}

// NewStore creates a session store. maxLifespan is the absolute lifetime
// applied to every root session at creation.
func NewStore(redisClient redis.UniversalClient, prefix string, maxLifespan time.Duration) *Store {
	if prefix == "" {
		prefix = "authsess"
	}
	if maxLifespan <= 0 {
		maxLifespan = 30 * time.Minute
	}
	return &Store{
		redis:       redisClient,
		prefix:      prefix,
		maxLifespan: maxLifespan,
	}
}

func (s *Store) key(realmID, rootID string) string {
	return s.prefix + ":" + realmID + ":" + rootID
}

func (s *Store) userKey(realmID, userID string) string {
	return s.prefix + ":" + realmID + ":user:" + userID
}

// Create makes a new empty root session for the realm and persists it with
// the absolute-lifetime TTL.
func (s *Store) Create(ctx context.Context, realmID string) (*RootSession, error) {
	now := time.Now()
	root := &RootSession{
		RootID:       uuid.NewString(),
		RealmID:      realmID,
		CreatedAt:    now.Unix(),
		LastAccessAt: now.Unix(),
		ExpiresAt:    now.Add(s.maxLifespan).Unix(),
		Tabs:         make(map[string]*TabSession),
	}

	encoded, err := Encode(root)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, s.key(realmID, root.RootID), encoded, s.maxLifespan).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return root, nil
}

// Get fetches a live root session. Expired or missing blobs both report
// [ErrNotFound]; callers must not be able to tell the two apart.
func (s *Store) Get(ctx context.Context, realmID, rootID string) (*RootSession, error) {
	data, err := s.redis.Get(ctx, s.key(realmID, rootID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	root, err := Decode(data)
	if err != nil {
		return nil, ErrNotFound
	}
	if time.Now().Unix() > root.ExpiresAt {
		return nil, ErrNotFound
	}

	return root, nil
}

// Mutate applies fn to the root session under an optimistic WATCH
// transaction. Lost races are retried up to the budget, then surface as
// [ErrConflict]. The user index is kept in sync with principals that appear
// on tabs during the mutation, and LastAccessAt is refreshed.
func (s *Store) Mutate(ctx context.Context, realmID, rootID string, fn func(*RootSession) error) (*RootSession, error) {
	key := s.key(realmID, rootID)

	var result *RootSession
	for i := 0; i < mutateMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrNotFound
				}
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}

			root, err := Decode(data)
			if err != nil {
				return ErrNotFound
			}
			now := time.Now()
			if now.Unix() > root.ExpiresAt {
				return ErrNotFound
			}

			before := root.UserIDs()

			if err := fn(root); err != nil {
				return err
			}
			root.LastAccessAt = now.Unix()

			added := diffUsers(before, root.UserIDs())

			encoded, err := Encode(root)
			if err != nil {
				return err
			}

			ttl := time.Unix(root.ExpiresAt, 0).Sub(now)
			if ttl < minTTL {
				ttl = minTTL
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				for _, userID := range added {
					pipe.SAdd(ctx, s.userKey(realmID, userID), rootID)
					pipe.Expire(ctx, s.userKey(realmID, userID), s.maxLifespan)
				}
				return nil
			})
			if err != nil {
				return err
			}

			result = root
			return nil
		}, key)

		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, ErrConflict
}

// RemoveTab deletes one tab from a root session. Removing the last tab
// cascades into removing the root itself. The last-tab decision is made on
// the watched read, so a tab added concurrently forces a retry instead of
// being destroyed by the cascade.
func (s *Store) RemoveTab(ctx context.Context, realmID, rootID, tabID string) error {
	key := s.key(realmID, rootID)

	for i := 0; i < mutateMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrNotFound
				}
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}

			root, err := Decode(data)
			if err != nil {
				return ErrNotFound
			}
			now := time.Now()
			if now.Unix() > root.ExpiresAt {
				return ErrNotFound
			}
			if root.Tab(tabID) == nil {
				return ErrTabNotFound
			}

			users := root.UserIDs()
			delete(root.Tabs, tabID)

			if len(root.Tabs) == 0 {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					for _, userID := range users {
						pipe.SRem(ctx, s.userKey(realmID, userID), rootID)
					}
					return nil
				})
				return err
			}

			root.LastAccessAt = now.Unix()
			encoded, err := Encode(root)
			if err != nil {
				return err
			}
			ttl := time.Unix(root.ExpiresAt, 0).Sub(now)
			if ttl < minTTL {
				ttl = minTTL
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			return err
		}, key)

		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return ErrConflict
}

// RemoveRoot deletes the root session and de-indexes it from every user that
// authenticated through it. Idempotent; a subsequent Get always reports
// [ErrNotFound].
func (s *Store) RemoveRoot(ctx context.Context, realmID, rootID string) error {
	keys := []string{s.key(realmID, rootID)}

	root, err := s.Get(ctx, realmID, rootID)
	if err == nil {
		for _, userID := range root.UserIDs() {
			keys = append(keys, s.userKey(realmID, userID))
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := removeRootLua.Run(ctx, s.redis, keys, rootID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ListUserSessionsExcept returns the ids of the user's live root sessions
// other than exceptID. Dead index entries discovered along the way are
// pruned.
func (s *Store) ListUserSessionsExcept(ctx context.Context, realmID, userID, exceptID string) ([]string, error) {
	userKey := s.userKey(realmID, userID)

	members, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	candidates := make([]string, 0, len(members))
	for _, id := range members {
		if id != exceptID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(candidates))
	for i, id := range candidates {
		existsCmds[i] = pipe.Exists(ctx, s.key(realmID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(candidates))
	var stale []interface{}
	for i, cmd := range existsCmds {
		n, cmdErr := cmd.Result()
		if cmdErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if n > 0 {
			live = append(live, candidates[i])
		} else {
			stale = append(stale, candidates[i])
		}
	}

	if len(stale) > 0 {
		_ = s.redis.SRem(ctx, userKey, stale...).Err()
	}

	return live, nil
}

// Ping reports Redis availability and round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func diffUsers(before, after []string) []string {
	if len(after) == 0 {
		return nil
	}
	prev := make(map[string]struct{}, len(before))
	for _, u := range before {
		prev[u] = struct{}{}
	}
	var added []string
	for _, u := range after {
		if _, ok := prev[u]; !ok {
			added = append(added, u)
		}
	}
	return added
}
