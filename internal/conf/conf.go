package conf

import "time"

// Bootstrap 启动配置
type Bootstrap struct {
	Server    *Server    `json:"server"`
	Data      *Data      `json:"data"`
	Billing   *Billing   `json:"billing"`
	Providers *Providers `json:"providers"`
}

// Server 服务配置
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP HTTP 服务配置
type HTTP struct {
	Network string `json:"network"`
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"` // 如 "5s"
}

// TimeoutDuration 解析 HTTP 超时时间（解析失败返回 0）
func (h *HTTP) TimeoutDuration() time.Duration {
	if h == nil || h.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(h.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Data 数据层配置
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
	Rocketmq *Rocketmq `json:"rocketmq"`
}

// Database 数据库配置
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

// Redis Redis 配置
type Redis struct {
	Addr         string `json:"addr"`
	Password     string `json:"password"`
	Db           int    `json:"db"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

// Rocketmq RocketMQ 配置（计费事件重放通道）
type Rocketmq struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	Topic       string   `json:"topic"`
	GroupName   string   `json:"group_name"`
	RetryTimes  int      `json:"retry_times"`
}

// Billing 订阅/返利业务配置
type Billing struct {
	// EmailSalt 邮箱指纹盐值
	EmailSalt string `json:"email_salt"`
	// ProMonthLimit Pro 用户每月配额上限
	ProMonthLimit int `json:"pro_month_limit"`
	// ReferralRewardAmount 推荐返利金额（欧元）
	ReferralRewardAmount float64 `json:"referral_reward_amount"`
	// CodeExpiryDays 邀请码有效期（天），0 表示永不过期
	CodeExpiryDays int `json:"code_expiry_days"`
	// DowngradeOnRenewalStatusChange 收到续订状态变更通知时是否立即降级
	// 默认 false：订阅在有效期内保持 Pro，等待真正的过期通知
	DowngradeOnRenewalStatusChange bool `json:"downgrade_on_renewal_status_change"`
	// VirtualBoxDomain 新用户虚拟收件箱域名
	VirtualBoxDomain string `json:"virtual_box_domain"`
}

// Providers 支付渠道配置
type Providers struct {
	Stripe *Stripe `json:"stripe"`
	Apple  *Apple  `json:"apple"`
}

// Stripe Stripe 渠道配置
type Stripe struct {
	ApiKey          string `json:"api_key"`
	WebhookSecret   string `json:"webhook_secret"`
	PortalReturnUrl string `json:"portal_return_url"`
}

// Apple Apple IAP 渠道配置
type Apple struct {
	SharedSecret     string `json:"shared_secret"`
	VerifyUrl        string `json:"verify_url"`
	SandboxVerifyUrl string `json:"sandbox_verify_url"`
	Timeout          string `json:"timeout"` // 如 "30s"
}

// TimeoutDuration 解析收据校验超时时间（默认 30s）
func (a *Apple) TimeoutDuration() time.Duration {
	if a == nil || a.Timeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
