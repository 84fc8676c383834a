package controller

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"ecomsimply_v1_202608/internal/api/dto"
	"ecomsimply_v1_202608/internal/middleware"
	"ecomsimply_v1_202608/internal/model"
	"ecomsimply_v1_202608/internal/service"
)

type ConnectionController struct {
	connSvc     *service.ConnectionService
	frontendURL string // 回调结束后跳回的前端地址
}

func NewConnectionController(connSvc *service.ConnectionService, frontendURL string) *ConnectionController {
	return &ConnectionController{
		connSvc:     connSvc,
		frontendURL: frontendURL,
	}
}

// Connect 发起 Amazon 授权
// @Summary 发起 Amazon 授权
// @Description 创建 pending 连接并返回 Seller Central 授权跳转链接
// @Tags Amazon (连接管理)
// @Accept json
// @Produce json
// @Param request body dto.ConnectReq true "站点与区域"
// @Success 200 {object} dto.ConnectResp "授权链接"
// @Failure 400 {object} map[string]string "参数错误"
// @Failure 409 {object} map[string]string "该站点已有连接"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /api/amazon/connect [post]
func (c *ConnectionController) Connect(ctx *gin.Context) {
	var req dto.ConnectReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	userID := middleware.GetUserID(ctx)
	authURL, conn, err := c.connSvc.CreateConnection(ctx.Request.Context(), userID, req.MarketplaceID, req.Region)
	if err != nil {
		if errors.Is(err, service.ErrConnectionExists) {
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, dto.ConnectResp{
		ConnectionID:     conn.ConnectionID,
		AuthorizationURL: authURL,
		ExpiresAt:        *conn.OAuthStateExpires,
	})
}

// Callback Amazon 授权回调
// @Summary Amazon 授权回调
// @Description 浏览器重定向入口，无 Bearer 认证。popup=1 时返回 HTML 弹窗页，否则 302 跳回前端
// @Tags Amazon (连接管理)
// @Produce html
// @Param state query string true "CSRF state"
// @Param spapi_oauth_code query string true "授权码"
// @Param selling_partner_id query string true "卖家 ID"
// @Param popup query string false "弹窗模式标记"
// @Success 302 {string} string "重定向到前端"
// @Router /api/amazon/callback [get]
func (c *ConnectionController) Callback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("spapi_oauth_code")
	sellerID := ctx.Query("selling_partner_id")
	popup := ctx.Query("popup") == "1"

	// seller id 缺了也算参数不全: 空 SellerID 会进 Feed 头，Amazon 直接驳回
	if state == "" || code == "" || sellerID == "" {
		c.finishCallback(ctx, popup, false, "missing_params")
		return
	}

	_, err := c.connSvc.HandleOAuthCallback(ctx.Request.Context(), state, code, sellerID)
	if err != nil {
		// 不向浏览器透出内部细节，只给一个粗粒度错误码
		reason := "callback_failed"
		if errors.Is(err, service.ErrInvalidState) {
			reason = "invalid_state"
		}
		c.finishCallback(ctx, popup, false, reason)
		return
	}

	c.finishCallback(ctx, popup, true, "")
}

// finishCallback 按 popup 参数选择收尾方式
// 弹窗模式: 回一页 HTML 给 window.opener 发消息后自关
// 普通模式: 302 跳回前端并带上成功/失败标记
func (c *ConnectionController) finishCallback(ctx *gin.Context, popup, success bool, reason string) {
	if popup {
		status := "error"
		if success {
			status = "success"
		}
		page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Amazon 授权</title></head>
<body>
<script>
if (window.opener) {
  window.opener.postMessage({type: "amazon_oauth", status: %q, reason: %q}, "*");
}
window.close();
</script>
<p>授权已处理，可以关闭此窗口。</p>
</body>
</html>`, status, html.EscapeString(reason))
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}

	target := c.frontendURL
	if success {
		target += "?amazon_connected=1"
	} else {
		target += "?amazon_error=" + url.QueryEscape(reason)
	}
	ctx.Redirect(http.StatusFound, target)
}

// Status 聚合连接状态
// @Summary 聚合连接状态
// @Description 返回 none/connected/pending/error/revoked 的总体状态与各态计数
// @Tags Amazon (连接管理)
// @Produce json
// @Success 200 {object} dto.ConnectionStatusResp "聚合状态"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /api/amazon/status [get]
func (c *ConnectionController) Status(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)

	conns, err := c.connSvc.GetUserConnections(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status, counts := c.connSvc.AggregateStatus(conns)
	resp := dto.ConnectionStatusResp{
		Status:      status,
		Counts:      counts,
		Connections: make([]dto.ConnectionResp, 0, len(conns)),
	}
	for _, conn := range conns {
		resp.Connections = append(resp.Connections, toConnectionResp(&conn))
	}

	ctx.JSON(http.StatusOK, resp)
}

// Disconnect 断开所有连接
// @Summary 断开所有连接
// @Description 撤销该用户全部连接并抹掉 Token 材料，幂等
// @Tags Amazon (连接管理)
// @Produce json
// @Success 200 {object} dto.DisconnectResp "撤销条数"
// @Failure 500 {object} map[string]string "服务器错误"
// @Router /api/amazon/disconnect [post]
func (c *ConnectionController) Disconnect(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)

	affected, err := c.connSvc.Disconnect(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, dto.DisconnectResp{Revoked: affected})
}

// toConnectionResp 模型转响应，绝不带出 Token 字段
func toConnectionResp(conn *model.Connection) dto.ConnectionResp {
	return dto.ConnectionResp{
		ConnectionID:  conn.ConnectionID,
		MarketplaceID: conn.MarketplaceID,
		Region:        conn.Region,
		SellerID:      conn.SellerID,
		Status:        conn.Status,
		ErrorMessage:  conn.ErrorMessage,
		ConnectedAt:   conn.ConnectedAt,
		CreatedAt:     conn.CreatedAt,
	}
}
