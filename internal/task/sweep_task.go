package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"ecomsimply_v1_202608/internal/repository"
)

// SweepTask 过期 pending 连接清理
// 用户点了连接但没在 Amazon 完成授权的记录会一直挂在 pending，
// state 过期后这些记录永远无法激活，定期清掉
type SweepTask struct {
	ConnRepo repository.ConnectionRepository
	Cron     *cron.Cron
}

func NewSweepTask(connRepo repository.ConnectionRepository) *SweepTask {
	return &SweepTask{
		ConnRepo: connRepo,
		Cron:     cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *SweepTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次过期连接清理...")
		t.sweepJob(ctx)
	}()

	// 每 15 分钟扫一次
	_, err := t.Cron.AddFunc("0 0/15 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		t.sweepJob(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动过期连接清理任务: %v", err)
	}

	t.Cron.Start()
	log.Println("过期连接清理任务已启动 (每15分钟一次)")
}

// Stop 停止任务
func (t *SweepTask) Stop() {
	t.Cron.Stop()
}

func (t *SweepTask) sweepJob(ctx context.Context) {
	deleted, err := t.ConnRepo.DeleteExpiredPending(ctx, time.Now())
	if err != nil {
		log.Printf("[Cron] 过期连接清理失败: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[Cron] 清理了 %d 条过期的 pending 连接", deleted)
	}
}
