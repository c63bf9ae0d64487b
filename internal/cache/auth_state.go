package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/skinstack-core/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// InfluencerAuthState 达人鉴权快照
// 仅用于服务端 Redis 缓存，避免每次请求回查数据库
type InfluencerAuthState struct {
	InfluencerID uint   `json:"influencer_id"`
	Status       string `json:"status"`
	UpdatedAt    int64  `json:"updated_at"`
}

// AdminAuthState 管理员鉴权快照
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	IsSuper            bool   `json:"is_super"`
	UpdatedAt          int64  `json:"updated_at"`
}

func influencerAuthStateKey(influencerID uint) string {
	return fmt.Sprintf("auth:influencer:%d", influencerID)
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

// BuildInfluencerAuthState 从达人模型构建鉴权快照
func BuildInfluencerAuthState(influencer *models.Influencer) *InfluencerAuthState {
	if influencer == nil {
		return nil
	}
	return &InfluencerAuthState{
		InfluencerID: influencer.ID,
		Status:       influencer.Status,
		UpdatedAt:    time.Now().Unix(),
	}
}

// BuildAdminAuthState 从管理员模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		IsSuper:      admin.IsSuper,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// GetInfluencerAuthState 获取达人鉴权快照
func GetInfluencerAuthState(ctx context.Context, influencerID uint) (*InfluencerAuthState, bool, error) {
	if influencerID == 0 {
		return nil, false, nil
	}
	var state InfluencerAuthState
	hit, err := GetJSON(ctx, influencerAuthStateKey(influencerID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetInfluencerAuthState 写入达人鉴权快照
func SetInfluencerAuthState(ctx context.Context, state *InfluencerAuthState) error {
	if state == nil || state.InfluencerID == 0 {
		return nil
	}
	return SetJSON(ctx, influencerAuthStateKey(state.InfluencerID), state, authStateCacheTTL)
}

// DelInfluencerAuthState 删除达人鉴权快照
func DelInfluencerAuthState(ctx context.Context, influencerID uint) error {
	if influencerID == 0 {
		return nil
	}
	return Del(ctx, influencerAuthStateKey(influencerID))
}

// GetAdminAuthState 获取管理员鉴权快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAdminAuthState 写入管理员鉴权快照
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, authStateCacheTTL)
}

// DelAdminAuthState 删除管理员鉴权快照
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return Del(ctx, adminAuthStateKey(adminID))
}
