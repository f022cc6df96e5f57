package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gasroute/internal/config"
	"gasroute/internal/logging"
	"gasroute/internal/model"
	"gasroute/internal/sched"
	"gasroute/internal/store"
)

type Server struct {
	Store  store.Store
	Engine *sched.Engine
	Broker EventBroker
	Cfg    *config.Config
	Log    zerolog.Logger

	limiter *rate.Limiter
}

// NewServer wires the service from configuration. No DATABASE_URL means the
// in-memory store; no REDIS_URL means in-process broker and locker.
func NewServer() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewServerWith(cfg)
}

func NewServerWith(cfg *config.Config) (*Server, error) {
	log := logging.New(logging.Options{Service: "gasroute", Level: cfg.LogLevel, Format: cfg.LogFormat})

	var st store.Store
	if cfg.DatabaseURL == "" {
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		st = pg
	}

	var locker sched.DateLocker
	var broker EventBroker
	if cfg.RedisURL != "" {
		rl, err := sched.NewRedisLocker(cfg.RedisURL, 5*time.Minute)
		if err != nil {
			return nil, err
		}
		locker = rl
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		broker = rb
	} else {
		locker = sched.NewMemoryLocker()
		broker = NewBroker()
	}

	weights, speed, err := cfg.LoadWeights()
	if err != nil {
		return nil, err
	}
	engine := sched.New(st, locker, sched.Options{
		Depot:     model.GeoPoint{Lat: cfg.DepotLat, Lng: cfg.DepotLng},
		SpeedKph:  speed,
		Weights:   weights,
		Algorithm: cfg.Algorithm,
		Seed:      cfg.Seed,
		Budget:    time.Duration(cfg.TimeBudgetMs) * time.Millisecond,
		Log:       log,
	})

	s := &Server{Store: st, Engine: engine, Broker: broker, Cfg: cfg, Log: log}
	if cfg.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS)+1)
	}
	return s, nil
}
