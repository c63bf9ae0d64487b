package repository

import "time"

// LinkListFilter 查询短链列表的过滤条件
type LinkListFilter struct {
	Page         int
	PageSize     int
	InfluencerID uint
	ProgramID    uint
	Slug         string
	ActiveOnly   bool
}

// ConversionListFilter 查询转化列表的过滤条件
type ConversionListFilter struct {
	Page        int
	PageSize    int
	Source      string
	OrderID     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Page          int
	PageSize      int
	InfluencerID  uint
	ProgramID     uint
	ConversionID  uint
	Status        string
	UnclaimedOnly bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// PayoutBatchListFilter 查询结算批次列表的过滤条件
type PayoutBatchListFilter struct {
	Page         int
	PageSize     int
	InfluencerID uint
	Status       string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// WebhookEventListFilter 查询回调事件列表的过滤条件
type WebhookEventListFilter struct {
	Page        int
	PageSize    int
	Source      string
	EventType   string
	FailedOnly  bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// InfluencerListFilter 查询达人列表的过滤条件
type InfluencerListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Status   string
}

// ProgramListFilter 查询联盟计划列表的过滤条件
type ProgramListFilter struct {
	Page       int
	PageSize   int
	MerchantID uint
	Status     string
	Keyword    string
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
