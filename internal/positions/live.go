package positions

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

var ErrLiveIndexDisabled = errors.New("live position index is not configured")

// Nearby is an active trip close to a queried point.
type Nearby struct {
	PIN        string  `json:"trip_pin"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
}

// LiveIndex is a geo index over the latest position of each active trip.
type LiveIndex interface {
	Update(ctx context.Context, pin string, lat, lon float64) error
	Remove(ctx context.Context, pins ...string) error
	Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]Nearby, error)
}

// RedisLiveIndex keeps positions in one Redis GEO sorted set.
type RedisLiveIndex struct {
	rdb *redis.Client
	key string
}

func NewRedisLiveIndex(rdb *redis.Client, key string) *RedisLiveIndex {
	return &RedisLiveIndex{rdb: rdb, key: key}
}

func (r *RedisLiveIndex) Update(ctx context.Context, pin string, lat, lon float64) error {
	return r.rdb.GeoAdd(ctx, r.key, &redis.GeoLocation{Name: pin, Latitude: lat, Longitude: lon}).Err()
}

func (r *RedisLiveIndex) Remove(ctx context.Context, pins ...string) error {
	if len(pins) == 0 {
		return nil
	}
	members := make([]any, len(pins))
	for i, p := range pins {
		members[i] = p
	}
	return r.rdb.ZRem(ctx, r.key, members...).Err()
}

func (r *RedisLiveIndex) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]Nearby, error) {
	res, err := r.rdb.GeoRadius(ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Nearby, 0, len(res))
	for _, g := range res {
		out = append(out, Nearby{PIN: g.Name, Latitude: g.Latitude, Longitude: g.Longitude, DistanceKm: g.Dist})
	}
	return out, nil
}
