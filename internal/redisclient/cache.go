package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentacar-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Availability pages are stored under a per-branch generation number.
// Bumping the generation orphans every cached page of the branch; TTL reaps them.

func branchGenerationKey(branchID int64) string {
	return fmt.Sprintf("availability:gen:%d", branchID)
}

func availabilityKey(f models.AvailabilityFilter, generation int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "availability:%d:g%d:%s:%s", f.BranchID, generation, f.StartDate, f.EndDate)
	if f.Category != nil {
		fmt.Fprintf(&b, ":cat=%s", *f.Category)
	}
	if f.Transmission != nil {
		fmt.Fprintf(&b, ":tx=%s", *f.Transmission)
	}
	if f.FuelType != nil {
		fmt.Fprintf(&b, ":fuel=%s", *f.FuelType)
	}
	if f.MinSeats != nil {
		fmt.Fprintf(&b, ":seats=%d", *f.MinSeats)
	}
	if f.MaxPrice != nil {
		fmt.Fprintf(&b, ":max=%s", f.MaxPrice.String())
	}
	fmt.Fprintf(&b, ":p=%d:s=%d", f.Page, f.Size)
	return b.String()
}

func (c *Client) generation(ctx context.Context, branchID int64) (int64, error) {
	gen, err := c.rdb.Get(ctx, branchGenerationKey(branchID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetAvailability returns a cached availability page, or nil on a miss, together
// with the branch generation it looked under. A page computed after this call must
// be stored with that generation so an invalidation racing the query orphans it.
func (c *Client) GetAvailability(ctx context.Context, f models.AvailabilityFilter) (*models.Page[models.Car], int64, error) {
	gen, err := c.generation(ctx, f.BranchID)
	if err != nil {
		return nil, 0, err
	}

	data, err := c.rdb.Get(ctx, availabilityKey(f, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, gen, err
	}

	var page models.Page[models.Car]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, gen, fmt.Errorf("failed to decode cached availability: %w", err)
	}
	return &page, gen, nil
}

// SetAvailability caches an availability page under generation for ttl
func (c *Client) SetAvailability(ctx context.Context, f models.AvailabilityFilter, generation int64, page models.Page[models.Car], ttl time.Duration) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode availability: %w", err)
	}
	return c.rdb.Set(ctx, availabilityKey(f, generation), data, ttl).Err()
}

// InvalidateBranch drops every cached availability page of a branch
func (c *Client) InvalidateBranch(ctx context.Context, branchID int64) error {
	return c.rdb.Incr(ctx, branchGenerationKey(branchID)).Err()
}
