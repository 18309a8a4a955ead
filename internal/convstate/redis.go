package convstate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/notesbot/core/logger"
)

const (
	// DefaultKeyPrefix namespaces state and lock keys.
	DefaultKeyPrefix = "notesbot:"
	// DefaultStateTTL expires flows abandoned mid-way.
	DefaultStateTTL = 24 * time.Hour
	// DefaultLockExpiry releases a lock whose holder died without unlocking.
	DefaultLockExpiry = 15 * time.Second

	lockRetryDelay = 20 * time.Millisecond
	lockTries      = 1000
	unlockTimeout  = 2 * time.Second
)

// RedisOptions configures RedisStore.
type RedisOptions struct {
	KeyPrefix  string
	TTL        time.Duration
	LockExpiry time.Duration
}

// RedisStore keeps state in Redis so several bot replicas can share it.
// The per-user lock is a redsync mutex with an expiry, so a crashed holder
// cannot block a user forever.
type RedisStore struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	opts   RedisOptions
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultStateTTL
	}
	if opts.LockExpiry <= 0 {
		opts.LockExpiry = DefaultLockExpiry
	}
	return &RedisStore{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
	}
}

// Get loads the user's state. Values that fail to decode or validate read as Idle().
func (r *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	data, err := r.client.Get(ctx, r.stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Idle(), nil
	}
	if err != nil {
		return State{}, &Error{Op: "get", Err: err}
	}

	var st State
	err = json.Unmarshal(data, &st)
	if err == nil {
		err = st.Validate()
	}
	if err != nil {
		logger.Warn(ctx, "state", "state.decode.invalid",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Idle(), nil
	}
	return st, nil
}

// Set writes st, refreshing its TTL. Idle states are deleted rather than stored.
func (r *RedisStore) Set(ctx context.Context, userID int64, st State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if st.Flow == FlowIdle {
		if err := r.client.Del(ctx, r.stateKey(userID)).Err(); err != nil {
			return &Error{Op: "clear", Err: err}
		}
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return &Error{Op: "encode", Err: err}
	}
	if err := r.client.Set(ctx, r.stateKey(userID), data, r.opts.TTL).Err(); err != nil {
		return &Error{Op: "set", Err: err}
	}
	return nil
}

// Clear resets the user to Idle().
func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	return r.Set(ctx, userID, Idle())
}

// Lock acquires the user's distributed mutex, retrying until ctx is done.
func (r *RedisStore) Lock(ctx context.Context, userID int64) (func(), error) {
	mutex := r.rs.NewMutex(r.lockKey(userID),
		redsync.WithExpiry(r.opts.LockExpiry),
		redsync.WithTries(lockTries),
		redsync.WithRetryDelay(lockRetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &Error{Op: "lock", Err: err}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		unlockCtx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); err != nil || !ok {
			attrs := []slog.Attr{
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
			}
			logger.Warn(ctx, "state", "state.unlock", attrs...)
		}
	}, nil
}

// Ping checks connectivity; used at startup.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

func (r *RedisStore) stateKey(userID int64) string {
	return r.opts.KeyPrefix + "state:" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) lockKey(userID int64) string {
	return r.opts.KeyPrefix + "lock:" + strconv.FormatInt(userID, 10)
}
