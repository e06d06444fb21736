package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JrMarcco/jreward/internal/errs"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const etcdDailyStatsPrefix = "/jreward/daily_stats/"

var _ DailyStatsDAO = (*EtcdDailyStatsDAO)(nil)

// EtcdDailyStatsDAO 实体以 json 形式存储在 etcd 单个 key 上。
type EtcdDailyStatsDAO struct {
	kv clientv3.KV
}

func (d *EtcdDailyStatsDAO) GetByKey(ctx context.Context, key string) (DailyStats, error) {
	resp, err := d.kv.Get(ctx, d.etcdKey(key))
	if err != nil {
		return DailyStats{}, err
	}
	if len(resp.Kvs) == 0 {
		return DailyStats{}, errs.ErrDailyStatsNotFound
	}

	var entity DailyStats
	if err = json.Unmarshal(resp.Kvs[0].Value, &entity); err != nil {
		return DailyStats{}, fmt.Errorf("[jreward] unmarshal daily stats from etcd error: %w", err)
	}
	return entity, nil
}

func (d *EtcdDailyStatsDAO) Upsert(ctx context.Context, entity DailyStats) error {
	now := time.Now().UnixMilli()
	if entity.CreatedAt == 0 {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("[jreward] marshal daily stats error: %w", err)
	}
	_, err = d.kv.Put(ctx, d.etcdKey(entity.StatsKey), string(data))
	return err
}

func (d *EtcdDailyStatsDAO) etcdKey(key string) string {
	return etcdDailyStatsPrefix + key
}

func NewEtcdDailyStatsDAO(kv clientv3.KV) *EtcdDailyStatsDAO {
	return &EtcdDailyStatsDAO{
		kv: kv,
	}
}
