package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Inbox keeps the latest notifications per address in Redis lists.
type Inbox struct {
	rdb  *redis.Client
	size int64
}

// NewInbox keeps at most size notifications per address.
func NewInbox(rdb *redis.Client, size int) *Inbox {
	return &Inbox{rdb: rdb, size: int64(size)}
}

func inboxKey(addr string) string { return "inbox:" + addr }
func readKey(addr string) string  { return "inbox:read:" + addr }

// Push prepends n to addr's inbox and trims it.
func (b *Inbox) Push(ctx context.Context, addr string, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, inboxKey(addr), raw)
		pipe.LTrim(ctx, inboxKey(addr), 0, b.size-1)
		return nil
	})
	return err
}

// List returns up to limit notifications for addr, newest first.
func (b *Inbox) List(ctx context.Context, addr string, limit int) ([]Notification, error) {
	if limit <= 0 || int64(limit) > b.size {
		limit = int(b.size)
	}
	var (
		rawCmd  *redis.StringSliceCmd
		readCmd *redis.StringSliceCmd
	)
	_, err := b.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		rawCmd = pipe.LRange(ctx, inboxKey(addr), 0, int64(limit-1))
		readCmd = pipe.SMembers(ctx, readKey(addr))
		return nil
	})
	if err != nil {
		return nil, err
	}
	read := make(map[string]bool)
	for _, id := range readCmd.Val() {
		read[id] = true
	}

	out := make([]Notification, 0, len(rawCmd.Val()))
	seen := make(map[string]bool)
	for _, raw := range rawCmd.Val() {
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		// asynq retries can push the same event twice
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		n.Read = read[n.ID]
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flags a notification as read. It reports false when id is not in
// addr's inbox.
func (b *Inbox) MarkRead(ctx context.Context, addr, id string) (bool, error) {
	list, err := b.List(ctx, addr, 0)
	if err != nil {
		return false, err
	}
	for _, n := range list {
		if n.ID == id {
			return true, b.rdb.SAdd(ctx, readKey(addr), id).Err()
		}
	}
	return false, nil
}
