package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hongyu-crm/crm-backend/config"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix     = "crm:user:"     // crm:user:{id} -> JSON user record
	usernameKeyPrefix = "crm:username:" // crm:username:{username} -> user id
	userIndexKey      = "crm:users"     // sorted set of user ids by insertion sequence
	customerKeyPrefix = "crm:customer:" // crm:customer:{id} -> JSON customer
	customerIndexKey  = "crm:customers" // sorted set of customer ids by insertion sequence
	sequenceKey       = "crm:seq"       // monotonically increasing insertion counter
)

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisStore keeps records as JSON strings with sorted-set indexes that
// preserve insertion order. Records never expire.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// userRecord is the stored form of a user. domain.User hides the password
// hash from JSON, so it is spelled out here.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CanViewAll   bool      `json:"can_view_all"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserRecord(u domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CanViewAll:   u.CanViewAll,
		CreatedAt:    u.CreatedAt,
	}
}

func (rec userRecord) toDomain() domain.User {
	return domain.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Role:         domain.Role(rec.Role),
		CanViewAll:   rec.CanViewAll,
		CreatedAt:    rec.CreatedAt,
	}
}

func (r *RedisStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	values, err := r.listValues(ctx, userIndexKey, userKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, 0, len(values))
	for _, v := range values {
		var rec userRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user: %w", err)
		}
		users = append(users, rec.toDomain())
	}
	return users, nil
}

func (r *RedisStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	data, err := r.client.Get(ctx, userKeyPrefix+id).Result()
	if err == redis.Nil {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	var rec userRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return domain.User{}, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *RedisStore) InsertUser(ctx context.Context, u domain.User) error {
	// The username index doubles as the uniqueness lock.
	ok, err := r.client.SetNX(ctx, usernameKeyPrefix+u.Username, u.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve username: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateUsername
	}

	data, err := json.Marshal(toUserRecord(u))
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	seq, err := r.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, userKeyPrefix+u.ID, data, 0)
	pipe.ZAddNX(ctx, userIndexKey, redis.Z{Score: float64(seq), Member: u.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		r.client.Del(ctx, usernameKeyPrefix+u.Username)
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteUser(ctx context.Context, id string) error {
	u, err := r.GetUser(ctx, id)
	if err == domain.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, userKeyPrefix+id)
	pipe.Del(ctx, usernameKeyPrefix+u.Username)
	pipe.ZRem(ctx, userIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *RedisStore) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	u, err := r.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	u = applyPatch(u, patch)

	data, err := json.Marshal(toUserRecord(u))
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := r.client.Set(ctx, userKeyPrefix+id, data, 0).Err(); err != nil {
		return domain.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (r *RedisStore) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	values, err := r.listValues(ctx, customerIndexKey, customerKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	customers := make([]domain.Customer, 0, len(values))
	for _, v := range values {
		var c domain.Customer
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
		}
		customers = append(customers, c.Clone())
	}
	return customers, nil
}

func (r *RedisStore) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	data, err := r.client.Get(ctx, customerKeyPrefix+id).Result()
	if err == redis.Nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}

	var c domain.Customer
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return domain.Customer{}, fmt.Errorf("failed to unmarshal customer: %w", err)
	}
	return c.Clone(), nil
}

func (r *RedisStore) UpsertCustomer(ctx context.Context, c domain.Customer) error {
	data, err := json.Marshal(c.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal customer: %w", err)
	}

	seq, err := r.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, customerKeyPrefix+c.ID, data, 0)
	// NX keeps an existing customer at its original position.
	pipe.ZAddNX(ctx, customerIndexKey, redis.Z{Score: float64(seq), Member: c.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteCustomer(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, customerKeyPrefix+id)
	pipe.ZRem(ctx, customerIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

// listValues reads every member of an index in score order and fetches the
// values in one round trip. Dangling index entries are skipped.
func (r *RedisStore) listValues(ctx context.Context, indexKey, prefix string) ([]string, error) {
	ids, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefix + id
	}

	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	return values, nil
}
