// Command autologin-sweep removes expired autologin codes from Redis.
//
// Redis TTLs already reclaim code keys on their own; the sweep exists for
// deployments where keys were written with drifted clocks or where the
// reclaimed count needs to be observed and audited. Run it from cron or a
// one-shot job:
//
//	autologin-sweep -interval 0          # single pass, then exit
//	autologin-sweep -interval 10m        # loop until SIGINT/SIGTERM
//
// Configuration comes from flags and the environment (a local .env file is
// loaded if present):
//
//	REDIS_ADDR       Redis address (default localhost:6379)
//	REDIS_PASSWORD   Redis password (optional)
//	AUTOLOGIN_SALT   user-hash salt, >= 16 bytes (required)
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	autologin "github.com/linkgate/autologin"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	interval := flag.Duration("interval", 0, "sweep cadence; 0 runs a single pass and exits")
	prefix := flag.String("prefix", "alc", "Redis key prefix for autologin codes")
	timeout := flag.Duration("timeout", 30*time.Second, "per-pass timeout")
	flag.Parse()

	_ = godotenv.Load()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	salt := os.Getenv("AUTOLOGIN_SALT")
	if len(salt) < 16 {
		log.Fatal("AUTOLOGIN_SALT must be set and >= 16 bytes")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer rdb.Close()

	cfg := autologin.DefaultConfig()
	cfg.Codes.RedisPrefix = *prefix
	cfg.Codes.Salt = []byte(salt)
	cfg.Codes.SweepInterval = 0 // this command is the scheduler

	engine, err := autologin.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserResolver(autologin.UserResolverFunc(func(context.Context, uint64) (bool, error) {
			// Sweeping never verifies tokens; no directory lookup happens.
			return false, nil
		})).
		Build()
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		n, err := engine.SweepExpiredCodes(ctx, time.Now())
		if err != nil {
			log.Printf("sweep failed: %v", err)
			return
		}
		log.Printf("swept %d expired codes", n)
	}

	sweep()
	if *interval <= 0 {
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-stop:
			return
		}
	}
}
