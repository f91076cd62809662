package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"coursepass/internal/chain"
	"coursepass/internal/models"
)

type CacheService interface {
	// Course config caching
	GetCourseConfig(ctx context.Context, courseID string) (*chain.CourseConfig, error)
	SetCourseConfig(ctx context.Context, config *chain.CourseConfig, ttl time.Duration) error
	DeleteCourseConfig(ctx context.Context, courseID string) error

	// Floor price caching
	GetFloorPrice(ctx context.Context, courseID string) (*decimal.Decimal, error)
	SetFloorPrice(ctx context.Context, courseID string, price decimal.Decimal, ttl time.Duration) error
	DeleteFloorPrice(ctx context.Context, courseID string) error
	CoursesWithCachedFloor(ctx context.Context) ([]string, error)

	// Viewer view caching
	GetGroupView(ctx context.Context, groupID uuid.UUID, viewerKey string) (*models.GroupView, error)
	SetGroupView(ctx context.Context, groupID uuid.UUID, viewerKey string, view *models.GroupView, ttl time.Duration) error
	InvalidateGroupViews(ctx context.Context, groupID uuid.UUID) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func courseConfigKey(courseID string) string {
	return fmt.Sprintf("coursepass:course:%s", courseID)
}

func floorPriceKey(courseID string) string {
	return fmt.Sprintf("coursepass:floor:%s", courseID)
}

func groupViewKey(groupID uuid.UUID, viewerKey string) string {
	return fmt.Sprintf("coursepass:view:%s:%s", groupID.String(), viewerKey)
}

func (r *redisCacheService) GetCourseConfig(ctx context.Context, courseID string) (*chain.CourseConfig, error) {
	data, err := r.client.Get(ctx, courseConfigKey(courseID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var config chain.CourseConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *redisCacheService) SetCourseConfig(ctx context.Context, config *chain.CourseConfig, ttl time.Duration) error {
	data, err := json.Marshal(config)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, courseConfigKey(config.CourseID), data, ttl).Err()
}

func (r *redisCacheService) DeleteCourseConfig(ctx context.Context, courseID string) error {
	return r.client.Del(ctx, courseConfigKey(courseID)).Err()
}

func (r *redisCacheService) GetFloorPrice(ctx context.Context, courseID string) (*decimal.Decimal, error) {
	data, err := r.client.Get(ctx, floorPriceKey(courseID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	price, err := decimal.NewFromString(data)
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *redisCacheService) SetFloorPrice(ctx context.Context, courseID string, price decimal.Decimal, ttl time.Duration) error {
	return r.client.Set(ctx, floorPriceKey(courseID), price.String(), ttl).Err()
}

func (r *redisCacheService) DeleteFloorPrice(ctx context.Context, courseID string) error {
	return r.client.Del(ctx, floorPriceKey(courseID)).Err()
}

func (r *redisCacheService) CoursesWithCachedFloor(ctx context.Context) ([]string, error) {
	keys, err := r.client.Keys(ctx, "coursepass:floor:*").Result()
	if err != nil {
		return nil, err
	}
	courses := make([]string, 0, len(keys))
	for _, key := range keys {
		courses = append(courses, strings.TrimPrefix(key, "coursepass:floor:"))
	}
	return courses, nil
}

func (r *redisCacheService) GetGroupView(ctx context.Context, groupID uuid.UUID, viewerKey string) (*models.GroupView, error) {
	data, err := r.client.Get(ctx, groupViewKey(groupID, viewerKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var view models.GroupView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *redisCacheService) SetGroupView(ctx context.Context, groupID uuid.UUID, viewerKey string, view *models.GroupView, ttl time.Duration) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, groupViewKey(groupID, viewerKey), data, ttl).Err()
}

func (r *redisCacheService) InvalidateGroupViews(ctx context.Context, groupID uuid.UUID) error {
	keys, err := r.client.Keys(ctx, fmt.Sprintf("coursepass:view:%s:*", groupID.String())).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
