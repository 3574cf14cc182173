package controls

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	indexKey    = "controls:index"
	valuePrefix = "controls:"
)

var scopeRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func ValidateScope(scope string) error {
	if !scopeRe.MatchString(scope) {
		return fmt.Errorf("invalid control scope")
	}
	return nil
}

// Set stores the switch for scope.
func (s *Store) Set(ctx context.Context, scope string, paused bool, reason string) (*Control, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}

	ctl := &Control{Scope: scope, Paused: paused, Reason: reason, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(ctl)
	if err != nil {
		return nil, fmt.Errorf("marshal control: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, controlKey(scope), b, 0)
	pipe.SAdd(ctx, indexKey, scope)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("set control: %w", err)
	}

	return ctl, nil
}

func (s *Store) Pause(ctx context.Context, scope, reason string) (*Control, error) {
	return s.Set(ctx, scope, true, reason)
}

func (s *Store) Resume(ctx context.Context, scope string) (*Control, error) {
	return s.Set(ctx, scope, false, "")
}

func (s *Store) Get(ctx context.Context, scope string) (*Control, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, controlKey(scope)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get control: %w", err)
	}

	var c Control
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return nil, fmt.Errorf("unmarshal control: %w", err)
	}
	return &c, nil
}

func (s *Store) List(ctx context.Context) ([]*Control, error) {
	scopes, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list controls index: %w", err)
	}
	return s.load(ctx, scopes)
}

// IsPaused reports whether any scope is paused, with the first reason found.
func (s *Store) IsPaused(ctx context.Context, scopes ...string) (bool, string, error) {
	ctls, err := s.load(ctx, scopes)
	if err != nil {
		return false, "", err
	}
	for _, c := range ctls {
		if c.Paused {
			reason := c.Reason
			if reason == "" {
				reason = "paused"
			}
			return true, c.Scope + ": " + reason, nil
		}
	}
	return false, "", nil
}

func (s *Store) Delete(ctx context.Context, scope string) error {
	if err := ValidateScope(scope); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, controlKey(scope))
	pipe.SRem(ctx, indexKey, scope)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete control: %w", err)
	}

	return nil
}

func (s *Store) load(ctx context.Context, scopes []string) ([]*Control, error) {
	redisKeys := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		if err := ValidateScope(sc); err != nil {
			continue
		}
		redisKeys = append(redisKeys, controlKey(sc))
	}
	if len(redisKeys) == 0 {
		return []*Control{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget controls: %w", err)
	}

	out := make([]*Control, 0, len(vals))
	for _, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var c Control
		if err := json.Unmarshal([]byte(str), &c); err != nil {
			continue
		}
		out = append(out, &c)
	}

	return out, nil
}

func controlKey(scope string) string {
	return valuePrefix + scope
}
