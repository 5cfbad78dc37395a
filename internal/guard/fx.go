package guard

import (
	"time"

	"github.com/crewbase/crewbase/internal/clock"
	"github.com/crewbase/crewbase/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const storeTTL = time.Hour

// Guards bundles the independent keyspaces consulted around credential
// operations.
type Guards struct {
	IP    *Guard
	Email *Guard
}

var Module = fx.Module("guard",
	fx.Provide(NewGuards),
)

// NewGuards builds the IP and email guards. When REDIS_ADDR is set the state
// is shared across instances; otherwise it stays in-process.
func NewGuards(cfg config.Config, clk clock.Clock, log *zap.Logger) *Guards {
	newStore := func(prefix string) Store {
		if cfg.RedisAddr == "" {
			return NewMemoryStore(storeTTL)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		return NewRedisStore(client, prefix, storeTTL)
	}

	log = log.Named("guard")
	return &Guards{
		IP:    New(newStore("guard:ip"), cfg.Guard.IPThreshold, cfg.Guard.IPBlock, clk, log),
		Email: New(newStore("guard:email"), cfg.Guard.EmailThreshold, cfg.Guard.EmailBlock, clk, log),
	}
}
