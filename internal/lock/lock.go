package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/errors"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	redis "github.com/redis/go-redis/v9"
)

// ErrLockLost is returned by Release when the key expired or another run
// holds it now.
var ErrLockLost = stderrors.New("run lock was lost before release")

type Config struct {
	Prefix string
	TTL    time.Duration
}

// Locker keeps two runs from processing the same job document at once.
type Locker struct {
	config *Config
	rs     *redsync.Redsync
	log    *slog.Logger
}

func New(client redis.UniversalClient, config *Config) *Locker {
	return &Locker{
		config: config,
		rs:     redsync.New(goredis.NewPool(client)),
		log:    slog.With("component", "lock"),
	}
}

// Key derives the lock key from the raw job document.
func (l *Locker) Key(document []byte) string {
	sum := sha256.Sum256(document)
	return l.config.Prefix + hex.EncodeToString(sum[:])
}

type Lease struct {
	key   string
	mutex *redsync.Mutex
	log   *slog.Logger
}

// Acquire makes a single attempt and fails with a lock_error when the key
// is already held.
func (l *Locker) Acquire(ctx context.Context, key string) (*Lease, error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.config.TTL),
		redsync.WithTries(1),
	)

	if err := mutex.TryLockContext(ctx); err != nil {
		if isContention(err) {
			return nil, errors.New(errors.CodeLock,
				fmt.Sprintf("run lock %s is held by another run", key), err)
		}

		return nil, errors.New(errors.CodeLock, "acquire run lock", err)
	}

	l.log.Debug("Run lock acquired", "key", key, "ttl", l.config.TTL)

	return &Lease{
		key:   key,
		mutex: mutex,
		log:   l.log,
	}, nil
}

// Release deletes the key only while it still holds this lease's value.
func (l *Lease) Release(ctx context.Context) error {
	ok, err := l.mutex.UnlockContext(ctx)
	if err != nil && !isContention(err) && !stderrors.Is(err, redsync.ErrLockAlreadyExpired) {
		return fmt.Errorf("release run lock: %w", err)
	}

	if !ok {
		l.log.Warn("Run lock was lost before release", "key", l.key)
		return fmt.Errorf("%s: %w", l.key, ErrLockLost)
	}

	return nil
}

func isContention(err error) bool {
	var taken *redsync.ErrTaken
	if stderrors.As(err, &taken) || stderrors.Is(err, redsync.ErrFailed) {
		return true
	}

	return strings.Contains(err.Error(), "lock already taken")
}
