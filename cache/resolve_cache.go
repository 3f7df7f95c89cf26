package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"songrab/logger"
	"songrab/model"
)

// 解析结果的缓存有效期。专辑和歌单的曲目列表变化不频繁，
// 半小时内重复下载同一个链接不用再打一次解析接口。
const resolveTTL = 30 * time.Minute

func resolveKey(identifier string) string {
	return fmt.Sprintf("resolve:%s", identifier)
}

// GetResolved 查询标识符的缓存解析结果，未命中返回 nil
func GetResolved(ctx context.Context, identifier string) []model.TrackReference {
	if RedisClient == nil {
		return nil
	}

	data, err := RedisClient.Get(ctx, resolveKey(identifier)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("resolve cache get failed", logger.ErrorField(err))
		}
		return nil
	}

	var refs []model.TrackReference
	if err := json.Unmarshal(data, &refs); err != nil {
		logger.Warn("resolve cache entry corrupt", logger.ErrorField(err))
		return nil
	}
	return refs
}

// PutResolved 缓存标识符的解析结果，失败只记日志
func PutResolved(ctx context.Context, identifier string, refs []model.TrackReference) {
	if RedisClient == nil {
		return
	}

	data, err := json.Marshal(refs)
	if err != nil {
		logger.Warn("resolve cache marshal failed", logger.ErrorField(err))
		return
	}
	if err := RedisClient.Set(ctx, resolveKey(identifier), data, resolveTTL).Err(); err != nil {
		logger.Warn("resolve cache set failed", logger.ErrorField(err))
	}
}
