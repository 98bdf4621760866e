package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/kjstillabower/temp14-service/internal/models"
)

// ValkeyCache implements Cache on a Valkey/Redis server, so several service
// instances share upstream responses.
type ValkeyCache struct {
	client valkey.Client
	prefix string
	now    func() time.Time
}

// NewValkeyCache connects to addr, which is either host:port or a
// redis:// / valkey:// URL.
func NewValkeyCache(addr string) (*ValkeyCache, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse valkey url: %w", err)
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("valkey client: %w", err)
	}
	return NewValkeyCacheFromClient(client), nil
}

// NewValkeyCacheFromClient wraps an existing client.
func NewValkeyCacheFromClient(client valkey.Client) *ValkeyCache {
	return &ValkeyCache{client: client, prefix: keyPrefix, now: time.Now}
}

// Get implements Cache.Get.
func (c *ValkeyCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return models.Forecast{}, false, nil
		}
		return models.Forecast{}, false, err
	}
	return decodeEnvelope(raw, c.now())
}

// Set implements Cache.Set.
func (c *ValkeyCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	raw, err := encodeEnvelope(value, c.now(), ttl)
	if err != nil {
		return err
	}
	ttl = time.Duration(expirySeconds(ttl)) * time.Second
	cmd := c.client.B().Set().Key(c.prefix + key).Value(valkey.BinaryString(raw)).Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

// Ping checks that the server answers. Used for health checks.
func (c *ValkeyCache) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client connections.
func (c *ValkeyCache) Close() error {
	c.client.Close()
	return nil
}
