package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ecomsimply_v1_202608/internal/api/dto"
	"ecomsimply_v1_202608/internal/middleware"
	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/repository"
	"ecomsimply_v1_202608/internal/service"
)

type PublishController struct {
	publisher *service.PublisherService
	pipeline  *service.PipelineService
	limiter   *middleware.PublishRateLimiter
}

func NewPublishController(
	publisher *service.PublisherService,
	pipeline *service.PipelineService,
	limiter *middleware.PublishRateLimiter,
) *PublishController {
	return &PublishController{
		publisher: publisher,
		pipeline:  pipeline,
		limiter:   limiter,
	}
}

// Publish 手动发布商品
// @Summary 手动发布商品
// @Description 把商品提交为 JSON_LISTINGS_FEED。无 active 连接时返回 412
// @Tags Amazon (发布)
// @Accept json
// @Produce json
// @Param request body dto.PublishReq true "商品与目标站点"
// @Success 200 {object} dto.PublishResp "发布结果"
// @Failure 400 {object} map[string]string "参数错误"
// @Failure 412 {object} map[string]string "未连接 Amazon 账号"
// @Failure 429 {object} map[string]interface{} "发布冷却中"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /api/amazon/publish [post]
func (c *PublishController) Publish(ctx *gin.Context) {
	var req dto.PublishReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	userID := middleware.GetUserID(ctx)

	// 同一 SKU 的发布冷却
	key := middleware.PublishKey(userID, req.Listing.SKU)
	if result := c.limiter.Check(key, middleware.DefaultPublishInterval); !result.Allowed {
		ctx.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "该 SKU 正在冷却中，请稍后再试",
			"retry_after": result.RetryAfter.Seconds(),
		})
		return
	}

	record, err := c.publisher.Publish(ctx.Request.Context(), userID, &req.Listing, service.PublishOptions{
		MarketplaceID: req.MarketplaceID,
		ListingID:     req.ListingID,
	})
	if err != nil {
		c.limiter.Reset(key)
		if errors.Is(err, service.ErrConnectionRequired) {
			ctx.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 发布失败 (校验驳回/配额耗尽等) 不占冷却窗口，修完立即重试
	if !record.Success {
		c.limiter.Reset(key)
	}

	ctx.JSON(http.StatusOK, toPublishResp(record))
}

// PipelinePublish 流水线发布
// @Summary 流水线发布
// @Description 文案生成 -> 比价 -> 护栏校验 -> 合并 -> 发布，整条结果一次返回
// @Tags Amazon (发布)
// @Accept json
// @Produce json
// @Param request body dto.PipelineReq true "商品与生成参数"
// @Success 200 {object} service.PipelineResult "流水线结果 (completed/failed/pending_review)"
// @Failure 400 {object} map[string]string "参数错误"
// @Router /api/amazon/pipeline [post]
func (c *PublishController) PipelinePublish(ctx *gin.Context) {
	var req dto.PipelineReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	userID := middleware.GetUserID(ctx)
	result := c.pipeline.Execute(ctx.Request.Context(), userID, service.PipelineInput{
		Listing:       &req.Listing,
		Category:      req.Category,
		Features:      req.Features,
		MarketplaceID: req.MarketplaceID,
	})

	ctx.JSON(http.StatusOK, result)
}

// Prerequisites 流水线前置检查
// @Summary 流水线前置检查
// @Description 逐项列出缺失的前置条件 (连接/站点/订阅/护栏)
// @Tags Amazon (发布)
// @Produce json
// @Param marketplace_id query string false "目标站点"
// @Success 200 {object} dto.PrerequisitesResp "检查结果"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /api/amazon/pipeline/prerequisites [get]
func (c *PublishController) Prerequisites(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)

	missing, err := c.pipeline.ValidatePipelinePrerequisites(ctx.Request.Context(), userID, ctx.Query("marketplace_id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, dto.PrerequisitesResp{
		Ready:   len(missing) == 0,
		Missing: missing,
	})
}

// ListPublications 发布历史
// @Summary 发布历史
// @Description 分页查询该用户的发布记录
// @Tags Amazon (发布)
// @Produce json
// @Param marketplace_id query string false "站点筛选"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.PublicationListResp "发布历史"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /api/amazon/publications [get]
func (c *PublishController) ListPublications(ctx *gin.Context) {
	var req dto.PublicationListReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	userID := middleware.GetUserID(ctx)
	records, total, err := c.publisher.ListPublications(ctx.Request.Context(), repository.PublicationFilter{
		UserID:        userID,
		MarketplaceID: req.MarketplaceID,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.PublicationListResp{
		Total: total,
		Items: make([]dto.PublicationItemResp, 0, len(records)),
	}
	for _, r := range records {
		resp.Items = append(resp.Items, dto.PublicationItemResp{
			ID:            r.ID,
			MarketplaceID: r.MarketplaceID,
			SKU:           r.SKU,
			FeedID:        r.FeedID,
			Success:       r.Success,
			Status:        r.Status,
			ErrorKind:     r.ErrorKind,
			RetryCount:    r.RetryCount,
			PublishedAt:   r.PublishedAt,
			CreatedAt:     r.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, resp)
}

// FeedStatus 查单条 Feed 状态
// @Summary 查单条 Feed 状态
// @Description 优先返回 Amazon 实时状态，查询失败时降级回本地记录
// @Tags Amazon (发布)
// @Produce json
// @Param feed_id path string true "Feed ID"
// @Success 200 {object} service.FeedStatusResult "状态"
// @Failure 404 {object} map[string]string "本地无此 Feed"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /api/amazon/feeds/{feed_id} [get]
func (c *PublishController) FeedStatus(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)
	feedID := ctx.Param("feed_id")

	result, err := c.publisher.GetPublicationStatus(ctx.Request.Context(), userID, feedID)
	if err != nil {
		if errors.Is(err, repository.ErrPublicationNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "未找到该发布记录"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// toPublishResp 发布记录转响应
func toPublishResp(record *model.PublicationRecord) dto.PublishResp {
	return dto.PublishResp{
		Success:          record.Success,
		FeedID:           record.FeedID,
		FeedDocumentID:   record.FeedDocumentID,
		SKU:              record.SKU,
		Status:           record.Status,
		ErrorKind:        record.ErrorKind,
		Errors:           record.Errors,
		Warnings:         record.Warnings,
		RetryCount:       record.RetryCount,
		ProcessingTimeMs: record.ProcessingTimeMs,
		PublishedAt:      record.PublishedAt,
	}
}
