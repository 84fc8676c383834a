package model

// 订阅计划常量
// 历史上存在 "premium/pro" 和 "premium" 两套叫法，这里统一收敛成三档
const (
	PlanFree       = "free"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

// UserSettings 用户级发布配置
// 流水线的前置检查 (订阅 / 默认站点 / 价格护栏) 都读这张表
type UserSettings struct {
	BaseModel

	UserID int64  `gorm:"uniqueIndex;not null"`
	Plan   string `gorm:"size:20;default:'free'"`

	// 市场配置
	DefaultMarketplaceID string `gorm:"size:20"`
	AutoPublish          bool   `gorm:"default:false"`

	// 价格护栏: 自动发布前价格必须落在 [MinPrice, MaxPrice]
	// 且与抓取参考价的偏差不超过 MaxVariancePct (百分比)
	MinPrice       float64 `gorm:"default:0"`
	MaxPrice       float64 `gorm:"default:0"`
	MaxVariancePct float64 `gorm:"default:0"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}

// AllowsAutoPublish 订阅是否允许自动发布
func (s *UserSettings) AllowsAutoPublish() bool {
	return s.Plan == PlanPremium || s.Plan == PlanEnterprise
}

// PriceGuardConfigured 价格护栏是否已配置
func (s *UserSettings) PriceGuardConfigured() bool {
	return s.MaxVariancePct > 0 || (s.MaxPrice > 0 && s.MaxPrice >= s.MinPrice)
}
