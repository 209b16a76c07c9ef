package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// SectionInvalidator implements post-session cache refresh by dropping the
// cached copy of a data section, forcing the next reader to refetch it.
type SectionInvalidator struct {
	client *redis.Client
}

func NewSectionInvalidator(client *redis.Client) *SectionInvalidator {
	return &SectionInvalidator{client: client}
}

func (i *SectionInvalidator) RefreshSection(ctx context.Context, name string) error {
	return i.client.Del(ctx, "quiz:cache:"+name).Err()
}
