// Package redis is the Redis surface of the link service. The display's
// state is mirrored into one hash whose writes double as change
// notifications, outbound requests arrive on a blocking command list, and
// events go out on plain pub/sub channels.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection with the handful of operations the
// link service needs.
type Client struct {
	client *redis.Client
	ctx    context.Context
}

// New connects and verifies the server is reachable.
func New(addr string, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Client{
		client: client,
		ctx:    ctx,
	}, nil
}

// Mirror writes one hash field and publishes a "field:value" notification
// on the hash's channel, pipelined so watchers never observe the
// notification without the value. Every state change the display reports
// goes through here.
func (c *Client) Mirror(key, field string, value interface{}) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, key, field, value)
	pipe.Publish(c.ctx, key, fmt.Sprintf("%s:%v", field, value))
	_, err := pipe.Exec(c.ctx)
	return err
}

// Set writes one hash field without notifying watchers. Used for the drop
// counters, which peers read on demand rather than react to.
func (c *Client) Set(key, field string, value interface{}) error {
	return c.client.HSet(c.ctx, key, field, value).Err()
}

// Get reads one hash field.
func (c *Client) Get(key, field string) (string, error) {
	val, err := c.client.HGet(c.ctx, key, field).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("key %s field %s not found", key, field)
	}
	return val, err
}

// Notify publishes a message on a channel.
func (c *Client) Notify(channel string, message string) error {
	return c.client.Publish(c.ctx, channel, message).Err()
}

// Watch subscribes to a channel and returns the message stream plus a
// close function.
func (c *Client) Watch(channel string) (<-chan *redis.Message, func()) {
	pubsub := c.client.Subscribe(c.ctx, channel)
	ch := pubsub.Channel()
	return ch, func() { pubsub.Close() }
}

// PopCommand blocks up to timeout for the next entry on a command list.
// A timeout is not an error; it is reported as ok == false so pollers can
// check for shutdown and come back.
func (c *Client) PopCommand(timeout time.Duration, key string) (string, bool, error) {
	result, err := c.client.BRPop(c.ctx, timeout, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		log.Printf("Error during BRPOP on key %s: %v", key, err)
		return "", false, err
	}
	// result is []string{key, value}
	if len(result) != 2 {
		log.Printf("Unexpected result length from BRPOP on key %s: %d", key, len(result))
		return "", false, fmt.Errorf("unexpected result from BRPOP: %v", result)
	}
	return result[1], true, nil
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	return c.client.Close()
}
