package database

import "github.com/redis/go-redis/v9"

// ConnectRedis returns a client for addr, or nil when addr is empty
func ConnectRedis(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}
