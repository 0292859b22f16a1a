package scoreboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// DefaultKeyPrefix Redis key 預設前綴
const DefaultKeyPrefix = "arcade"

// Redis 以 Redis 儲存的記錄器
//
// 資料結構：
//
//	<prefix>:best      ZSET  member=房間名稱 score=最佳分數（ZADD GT）
//	<prefix>:outcomes  HASH  field=結局 value=次數（HINCRBY）
//
// client 由呼叫者負責關閉。
type Redis struct {
	client      *redis.Client
	bestKey     string
	outcomesKey string
}

// NewRedis 建立 Redis 記錄器
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{
		client:      client,
		bestKey:     prefix + ":best",
		outcomesKey: prefix + ":outcomes",
	}
}

// Ping 檢查連線
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "ping redis")
	}
	return nil
}

// Record 實現 Recorder
//
// 兩個寫入放在同一個 MULTI/EXEC 裡。
func (r *Redis) Record(ctx context.Context, res Result) error {
	pipe := r.client.TxPipeline()
	pipe.ZAddGT(ctx, r.bestKey, redis.Z{Score: float64(res.Score), Member: res.Room})
	pipe.HIncrBy(ctx, r.outcomesKey, res.State.String(), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "record result")
	}
	return nil
}

// Top 實現 Recorder
func (r *Redis) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = DefaultTopN
	}

	zs, err := r.client.ZRevRangeWithScores(ctx, r.bestKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read top scores")
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		room, ok := z.Member.(string)
		if !ok {
			room = fmt.Sprint(z.Member)
		}
		entries = append(entries, Entry{Room: room, Score: int(z.Score)})
	}
	// ZREVRANGE 同分時依字典序反向，這裡統一成與記憶體實作相同的順序
	sortEntries(entries)
	return entries, nil
}

// Outcomes 實現 Recorder
func (r *Redis) Outcomes(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.outcomesKey).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read outcomes")
	}

	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, fmt.Sprintf("parse outcome %q", k))
		}
		out[k] = n
	}
	return out, nil
}
