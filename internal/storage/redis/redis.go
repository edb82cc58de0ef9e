// Package redis provides a CharacterStore on Redis. Records are stored as JSON
// strings, ordered through a sorted set scored by UpdatedAt.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/storage"
)

// maxTxRetries bounds optimistic WATCH retries under contention.
const maxTxRetries = 50

// Store is the Redis CharacterStore.
type Store struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewClient creates a client from cfg and pings it.
//
// Postcondition: Returns a reachable client or a non-nil error.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// NewStore returns a Store writing keys under prefix. A nil clock defaults to time.Now.
func NewStore(client *goredis.Client, prefix string, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{client: client, prefix: prefix, now: clock}
}

func (s *Store) characterKey(id string) string { return s.prefix + "character:" + id }
func (s *Store) indexKey() string              { return s.prefix + "characters" }
func (s *Store) walletKey() string             { return s.prefix + "wallet" }
func (s *Store) unlockedKey() string           { return s.prefix + "unlocked" }

// List returns every character ordered by UpdatedAt descending.
func (s *Store) List(ctx context.Context) ([]character.Record, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	recs := make([]character.Record, 0, len(ids))
	if len(ids) == 0 {
		return recs, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.characterKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading characters: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// deleted between ZREVRANGE and MGET
			continue
		}
		rec, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding character %s: %w", ids[i], err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (character.Record, error) {
	raw, err := s.client.Get(ctx, s.characterKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return character.Record{}, storage.ErrCharacterNotFound
	}
	if err != nil {
		return character.Record{}, fmt.Errorf("querying character: %w", err)
	}
	return decode(raw)
}

// Create builds and stores a new character.
func (s *Store) Create(ctx context.Context, name string, race ruleset.Race) (character.Record, error) {
	rec, err := character.Build(name, race, s.now())
	if err != nil {
		return character.Record{}, err
	}
	if err := s.write(ctx, s.client, rec); err != nil {
		return character.Record{}, fmt.Errorf("inserting character: %w", err)
	}
	return rec, nil
}

// Save overwrites an existing record.
func (s *Store) Save(ctx context.Context, rec character.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	key := s.characterKey(rec.ID)
	return s.retry(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrCharacterNotFound
		}
		return s.write(ctx, tx, rec)
	}, key)
}

// Delete removes the record with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	var del *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, s.characterKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting character: %w", err)
	}
	if del.Val() == 0 {
		return storage.ErrCharacterNotFound
	}
	return nil
}

// GlobalCurrency returns the global balance; a missing key is zero.
func (s *Store) GlobalCurrency(ctx context.Context) (int, error) {
	bal, err := s.client.Get(ctx, s.walletKey()).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying wallet: %w", err)
	}
	return bal, nil
}

// AddGlobalCurrency credits the global wallet with INCRBY.
func (s *Store) AddGlobalCurrency(ctx context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, storage.ErrInvalidAmount
	}
	bal, err := s.client.IncrBy(ctx, s.walletKey(), int64(amount)).Result()
	if err != nil {
		return 0, fmt.Errorf("crediting wallet: %w", err)
	}
	return int(bal), nil
}

// SpendGlobalCurrency debits the wallet under WATCH so a concurrent debit cannot overdraw it.
func (s *Store) SpendGlobalCurrency(ctx context.Context, amount int) (int, error) {
	if amount < 0 {
		return 0, storage.ErrInvalidAmount
	}
	var bal int
	err := s.retry(ctx, func(tx *goredis.Tx) error {
		cur, err := balance(ctx, tx, s.walletKey())
		if err != nil {
			return err
		}
		if cur < amount {
			return storage.ErrInsufficientCurrency
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, s.walletKey(), strconv.Itoa(cur-amount), 0)
			return nil
		})
		bal = cur - amount
		return err
	}, s.walletKey())
	if err != nil {
		return 0, err
	}
	return bal, nil
}

// UnlockedItems returns the members of the unlocked set.
func (s *Store) UnlockedItems(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.unlockedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing unlocked items: %w", err)
	}
	return ids, nil
}

// UnlockItem adds itemID to the unlocked set.
func (s *Store) UnlockItem(ctx context.Context, itemID string) error {
	if err := s.client.SAdd(ctx, s.unlockedKey(), itemID).Err(); err != nil {
		return fmt.Errorf("unlocking item: %w", err)
	}
	return nil
}

// PurchaseItem debits price and unlocks itemID in one MULTI block guarded by WATCH
// on both the wallet and the unlocked set.
func (s *Store) PurchaseItem(ctx context.Context, itemID string, price int) (int, error) {
	if price < 0 {
		return 0, storage.ErrInvalidAmount
	}
	var bal int
	err := s.retry(ctx, func(tx *goredis.Tx) error {
		owned, err := tx.SIsMember(ctx, s.unlockedKey(), itemID).Result()
		if err != nil {
			return err
		}
		if owned {
			return storage.ErrAlreadyUnlocked
		}
		cur, err := balance(ctx, tx, s.walletKey())
		if err != nil {
			return err
		}
		if cur < price {
			return storage.ErrInsufficientCurrency
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, s.walletKey(), strconv.Itoa(cur-price), 0)
			pipe.SAdd(ctx, s.unlockedKey(), itemID)
			return nil
		})
		bal = cur - price
		return err
	}, s.walletKey(), s.unlockedKey())
	if err != nil {
		return 0, err
	}
	return bal, nil
}

// write stores rec and refreshes its index score in one MULTI block.
func (s *Store) write(ctx context.Context, c goredis.Cmdable, rec character.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding character: %w", err)
	}
	_, err = c.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.characterKey(rec.ID), raw, 0)
		pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: float64(rec.UpdatedAt.UnixMicro()), Member: rec.ID})
		return nil
	})
	return err
}

// retry runs fn under WATCH keys, retrying when another client touched them first.
func (s *Store) retry(ctx context.Context, fn func(tx *goredis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %v: %w", keys, goredis.TxFailedErr)
}

func balance(ctx context.Context, tx *goredis.Tx, key string) (int, error) {
	cur, err := tx.Get(ctx, key).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return cur, err
}

func decode(raw string) (character.Record, error) {
	var rec character.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return character.Record{}, fmt.Errorf("%w: %v", character.ErrCorruptRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return character.Record{}, err
	}
	return rec, nil
}
