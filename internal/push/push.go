// Package push manages Web Push subscriptions and delivery.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotSubscribed is returned when no subscription exists for a user.
var ErrNotSubscribed = errors.New("user not subscribed")

// Keys are the browser-generated encryption keys of one subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is the browser push subscription as PushManager emits it.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// Valid reports whether the subscription carries everything delivery
// needs.
func (s Subscription) Valid() bool {
	return s.Endpoint != "" && s.Keys.P256dh != "" && s.Keys.Auth != ""
}

// UserSubscription binds a subscription to the account that owns it.
type UserSubscription struct {
	UserID       string       `json:"userId"`
	Subscription Subscription `json:"subscription"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Registry stores one subscription per user.
type Registry interface {
	Put(ctx context.Context, sub UserSubscription) error
	Get(ctx context.Context, userID string) (*UserSubscription, error)
	Delete(ctx context.Context, userID string) error
	UserIDs(ctx context.Context) ([]string, error)
}

// MemoryRegistry is the single-instance registry; subscriptions reset
// on restart and browsers re-subscribe on next visit.
type MemoryRegistry struct {
	mu   sync.RWMutex
	subs map[string]UserSubscription
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{subs: make(map[string]UserSubscription)}
}

func (r *MemoryRegistry) Put(_ context.Context, sub UserSubscription) error {
	r.mu.Lock()
	r.subs[sub.UserID] = sub
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, userID string) (*UserSubscription, error) {
	r.mu.RLock()
	sub, ok := r.subs[userID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotSubscribed
	}
	return &sub, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	delete(r.subs, userID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) UserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	return ids, nil
}

// RedisRegistry shares subscriptions across replicas.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: "push:"}
}

func (r *RedisRegistry) key(userID string) string { return r.prefix + userID }

func (r *RedisRegistry) Put(ctx context.Context, sub UserSubscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sub.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, userID string) (*UserSubscription, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return nil, ErrNotSubscribed
	}
	if err != nil {
		return nil, fmt.Errorf("lookup subscription: %w", err)
	}
	var sub UserSubscription
	if err := json.Unmarshal([]byte(data), &sub); err != nil {
		return nil, fmt.Errorf("unmarshal subscription: %w", err)
	}
	return &sub, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (r *RedisRegistry) UserIDs(ctx context.Context) ([]string, error) {
	keys, err := r.client.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, r.prefix))
	}
	return ids, nil
}

// Notification is the payload the service worker renders.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
}

// Sender delivers a notification to one subscription.
type Sender interface {
	Send(ctx context.Context, sub Subscription, n Notification) error
}

// WebPushSender signs deliveries with the configured VAPID key pair.
type WebPushSender struct {
	subject    string
	publicKey  string
	privateKey string
	logger     zerolog.Logger
}

// NewWebPushSender builds a sender. Keys arrive in whatever base64
// flavor was pasted into the environment and are normalized to the
// URL-safe unpadded form VAPID requires.
func NewWebPushSender(subject, publicKey, privateKey string, logger zerolog.Logger) *WebPushSender {
	return &WebPushSender{
		subject:    subject,
		publicKey:  normalizeKey(publicKey),
		privateKey: normalizeKey(privateKey),
		logger:     logger.With().Str("component", "push").Logger(),
	}
}

func normalizeKey(k string) string {
	k = strings.ReplaceAll(k, "+", "-")
	k = strings.ReplaceAll(k, "/", "_")
	return strings.TrimRight(k, "=")
}

func (s *WebPushSender) Send(ctx context.Context, sub Subscription, n Notification) error {
	if n.Title == "" {
		n.Title = "LeanMobile"
	}
	if n.URL == "" {
		n.URL = "/"
	}
	if n.Icon == "" {
		n.Icon = "/icons/icon-192x192.png"
	}
	if n.Badge == "" {
		n.Badge = n.Icon
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint answered %d", resp.StatusCode)
	}
	s.logger.Debug().Int("status", resp.StatusCode).Msg("notification delivered")
	return nil
}
