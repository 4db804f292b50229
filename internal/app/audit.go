package app

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	order "storefront/internal/service/order/domain"
)

// Auditor 是巡检需要的订单用例。
type Auditor interface {
	Scan(ctx context.Context, afterID int64, batch int) ([]*order.Order, error)
	Audit(ctx context.Context, o *order.Order) bool
}

type SweepResult struct {
	Checked    int64
	Violations int64
}

// Sweep 按 ID 分页读取全部订单并发重新计算摘要。新发现的不一致由 Audit 标记并告警，
// 已标记的订单只计数。
func Sweep(ctx context.Context, orders Auditor, batch, workers int) (SweepResult, error) {
	if batch <= 0 {
		batch = 500
	}
	if workers <= 0 {
		workers = 1
	}
	var res SweepResult
	var bad atomic.Int64
	var afterID int64
	for {
		page, err := orders.Scan(ctx, afterID, batch)
		if err != nil {
			res.Violations = bad.Load()
			return res, err
		}
		if len(page) == 0 {
			res.Violations = bad.Load()
			return res, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, o := range page {
			g.Go(func() error {
				if !orders.Audit(gctx, o) {
					bad.Add(1)
				}
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			res.Violations = bad.Load()
			return res, err
		}
		res.Checked += int64(len(page))
		afterID = page[len(page)-1].ID
	}
}
