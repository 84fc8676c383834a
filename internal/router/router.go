package router

import (
	"ecomsimply_v1_202608/internal/controller"
	"ecomsimply_v1_202608/internal/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "ecomsimply_v1_202608/docs"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	jwtSvc *middleware.JWTService,
	connCtl *controller.ConnectionController,
	publishCtl *controller.PublishController) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. API 路由组
	api := r.Group("/api")
	{
		amazon := api.Group("/amazon")
		{
			// GET /api/amazon/callback
			// Amazon 302 跳回来的请求不带我们的 JWT，鉴权靠 state 签名
			amazon.GET("/callback", connCtl.Callback)

			// 其余路由都要登录态
			authed := amazon.Group("", jwtSvc.Auth())
			{
				// POST /api/amazon/connect
				authed.POST("/connect", connCtl.Connect)
				// GET /api/amazon/status
				authed.GET("/status", connCtl.Status)
				// POST /api/amazon/disconnect
				authed.POST("/disconnect", connCtl.Disconnect)

				// POST /api/amazon/publish 手动发布
				authed.POST("/publish", publishCtl.Publish)
				// POST /api/amazon/pipeline 全流程发布 (SEO + 价格 + 发布)
				authed.POST("/pipeline", publishCtl.PipelinePublish)
				// GET /api/amazon/pipeline/prerequisites
				authed.GET("/pipeline/prerequisites", publishCtl.Prerequisites)

				// GET /api/amazon/publications 发布历史
				authed.GET("/publications", publishCtl.ListPublications)
				// GET /api/amazon/feeds/:feed_id Feed 处理状态
				authed.GET("/feeds/:feed_id", publishCtl.FeedStatus)
			}
		}
	}
}
