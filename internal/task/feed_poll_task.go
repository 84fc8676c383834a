package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/internal/service"
	"ecomsimply_v1_202608/pkg/spapi"
)

// FeedPollTask Feed 处理状态轮询
// Feeds API 是异步的，提交成功只代表进了队列，
// 终态 (DONE / CANCELLED / FATAL) 要靠轮询拿回来更新本地记录
type FeedPollTask struct {
	PubRepo    repository.PublicationRepository
	ConnSvc    *service.ConnectionService
	FeedClient service.FeedClientInterface
	Cron       *cron.Cron

	batchSize int
}

func NewFeedPollTask(
	pubRepo repository.PublicationRepository,
	connSvc *service.ConnectionService,
	feedClient service.FeedClientInterface,
) *FeedPollTask {
	return &FeedPollTask{
		PubRepo:    pubRepo,
		ConnSvc:    connSvc,
		FeedClient: feedClient,
		Cron:       cron.New(cron.WithSeconds()),
		batchSize:  50,
	}
}

// Start 启动定时任务
func (t *FeedPollTask) Start() {
	// 每 5 分钟轮询一批
	_, err := t.Cron.AddFunc("0 0/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		t.pollJob(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动 Feed 轮询任务: %v", err)
	}

	t.Cron.Start()
	log.Println("Feed 状态轮询任务已启动 (每5分钟一次)")
}

// Stop 停止任务
func (t *FeedPollTask) Stop() {
	t.Cron.Stop()
}

// pollJob 逐条串行轮询，量不大且避免自触发限流
func (t *FeedPollTask) pollJob(ctx context.Context) {
	records, err := t.PubRepo.ListPendingFeeds(ctx, t.batchSize)
	if err != nil {
		log.Printf("[Cron] 待轮询 Feed 查询失败: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}

	log.Printf("[Cron] 开始轮询 %d 条 Feed 状态", len(records))
	updated := 0

	for _, record := range records {
		select {
		case <-ctx.Done():
			log.Println("[Cron] Feed 轮询超时停止")
			return
		default:
		}

		conn, err := t.ConnSvc.GetActiveConnection(ctx, record.UserID, record.MarketplaceID)
		if err != nil {
			// 连接已断开，这条留在原状态，下次用户重连后再追
			continue
		}

		accessToken, err := t.ConnSvc.GetValidAccessToken(ctx, conn)
		if err != nil {
			log.Printf("[Cron] Feed %s 取 Token 失败: %v", record.FeedID, err)
			continue
		}

		region, ok := spapi.GetRegion(conn.Region)
		if !ok {
			continue
		}

		live, err := t.FeedClient.GetFeedStatus(ctx, region.APIBase, accessToken, record.FeedID)
		if err != nil {
			log.Printf("[Cron] Feed %s 状态查询失败: %v", record.FeedID, err)
			continue
		}

		if live.ProcessingStatus != "" && live.ProcessingStatus != record.Status {
			if err := t.PubRepo.UpdateStatus(ctx, record.ID, live.ProcessingStatus); err != nil {
				log.Printf("[Cron] Feed %s 状态更新失败: %v", record.FeedID, err)
				continue
			}
			updated++
		}
	}

	if updated > 0 {
		log.Printf("[Cron] Feed 轮询完成，更新 %d 条", updated)
	}
}
