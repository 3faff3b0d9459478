package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

// ActorKey 操作人在 gin.Context 中的键，由 middleware.Actor 注入
const ActorKey = "actor"

// MustGetActor 从 Gin 上下文中安全提取操作人名称。
// 缺失时写入 401 响应，调用方应在 ok=false 时直接 return。
func MustGetActor(c *gin.Context) (string, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		response.Unauthorized(c, 10002, "缺少操作人")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "缺少操作人")
		return "", false
	}
	return s, true
}

// MustGetIDParam 读取 UUID 格式的路径参数。
// 格式非法时写入 400 响应，避免非法 ID 落到数据库层变成 500。
func MustGetIDParam(c *gin.Context, name, label string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		response.BadRequest(c, 10001, label+"不能为空")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, 10003, label+"格式无效")
		return "", false
	}
	return id, true
}
