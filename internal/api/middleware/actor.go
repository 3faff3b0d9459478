package middleware

import (
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/ssebin/pandagrad-sub000/internal/api/handler"
	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

// actorMaxLen 操作人名称最大长度（与 task_versions.created_by 列宽一致）
const actorMaxLen = 100

// Actor 操作人中间件
// 身份认证由上游网关完成，网关通过 header 注入管理员名称；
// 此处只校验存在性与长度，结果注入 gin.Context 供审计字段使用
func Actor(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(header))
		if actor == "" {
			response.Unauthorized(c, 10002, "缺少操作人")
			c.Abort()
			return
		}
		if utf8.RuneCountInString(actor) > actorMaxLen {
			response.BadRequest(c, 10001, "操作人名称过长")
			c.Abort()
			return
		}

		c.Set(handler.ActorKey, actor)
		c.Next()
	}
}
