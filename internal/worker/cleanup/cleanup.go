// Package cleanup は期限切れリフレッシュトークンの自動削除ジョブを提供する。
// リフレッシュTTLを超過して更新されていないrefresh_tokens行を定期削除する。
// 期限切れトークンはリフレッシュ時の検証でも拒否されるため、
// このジョブは漏れた行を回収するハウスキーピングとして動く。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TokenPurger は期限切れトークン行の一括削除インターフェース。
type TokenPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeRecorder は削除件数のメトリクス記録インターフェース。
type PurgeRecorder interface {
	RecordTokensPurged(count int64)
}

// CleanupJob は期限切れリフレッシュトークンの自動削除ジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	tokens  TokenPurger
	logger  *slog.Logger
	metrics PurgeRecorder

	// Retention はトークン行の保持期間。リフレッシュTTLと同じ値を設定する。
	Retention time.Duration

	now func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
func NewCleanupJob(tokens TokenPurger, logger *slog.Logger, retention time.Duration, metrics PurgeRecorder) *CleanupJob {
	return &CleanupJob{
		tokens:    tokens,
		logger:    logger,
		metrics:   metrics,
		Retention: retention,
		now:       time.Now,
	}
}

// Run は保持期間を超過したrefresh_tokens行を削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.Retention)

	deleted, err := j.tokens.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("token cleanup failed",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordTokensPurged(deleted)
	}

	j.logger.Info("token cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start はintervalごとにRunを繰り返す。ctxのキャンセルで停止する。
// 1回の失敗ではループを止めず、次の周期で再試行する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("token cleanup worker starting",
		slog.Duration("interval", interval),
		slog.Duration("retention", j.Retention),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("token cleanup worker stopped")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("token cleanup run failed", slog.String("error", err.Error()))
			}
		}
	}
}
