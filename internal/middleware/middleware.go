package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderRequestID 请求链路 ID
	HeaderRequestID = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxUserID    = "user_id"
	ctxPrincipal = "principal"
)

// Logger 访问日志；skipPaths 前缀匹配的路径（健康检查、事件流）不记录
func Logger(logger *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		for _, p := range skipPaths {
			if strings.HasPrefix(path, p) {
				return
			}
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if p := CurrentPrincipal(c); p != nil {
			fields = append(fields, zap.String("user_id", p.UserID), zap.String("planta", p.Plant))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("http request failed", fields...)
		case status >= 400:
			logger.Warn("http request rejected", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}

// CORS 允许的来源为空时放开全部来源
func CORS(allowOrigins ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0:
			h.Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Cache-Control, "+HeaderRequestID)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Expose-Headers", HeaderRequestID+", Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID 沿用上游传入的 ID，没有则生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// ==================== 认证与授权 ====================

// 生产模块角色
const (
	// AdminRole 通过所有角色检查
	AdminRole = "prd_admin"
	// PlannerRole 排产与生成工单
	PlannerRole = "prd_planner"
	// OperatorRole 产线报工
	OperatorRole = "prd_operator"
	// ViewerRole 只读
	ViewerRole = "prd_viewer"
)

// ProductionClaims 生产系统令牌载荷
type ProductionClaims struct {
	UserID      string   `json:"uid"`
	Name        string   `json:"name"`
	Plant       string   `json:"planta,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}

// Principal 当前请求的操作人
type Principal struct {
	UserID      string
	Name        string
	Plant       string
	Roles       []string
	Permissions []string
}

// HasRole 管理员拥有全部角色
func (p *Principal) HasRole(roles ...string) bool {
	for _, have := range p.Roles {
		if have == AdminRole {
			return true
		}
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Can 支持 "*" 与 "recipes:*" 形式的通配
func (p *Principal) Can(permission string) bool {
	resource, _, _ := strings.Cut(permission, ":")
	for _, have := range p.Permissions {
		if have == "*" || have == permission || have == resource+":*" {
			return true
		}
	}
	return false
}

// CurrentPrincipal 未认证时返回 nil
func CurrentPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}

// WithPrincipal 把操作人写入上下文
func WithPrincipal(c *gin.Context, p *Principal) {
	c.Set(ctxPrincipal, p)
	c.Set(ctxUserID, p.UserID)
}

func bearerToken(c *gin.Context) string {
	if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	// EventSource 无法设置请求头，事件流走 query 参数
	return c.Query("token")
}

func deny(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

// JWTAuth 校验 HS256 令牌并写入操作人
func JWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			deny(c, http.StatusUnauthorized, 40100, "Authorization is required")
			return
		}
		claims := &ProductionClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			deny(c, http.StatusUnauthorized, 40102, "Invalid or expired token")
			return
		}
		uid := claims.UserID
		if uid == "" {
			uid = claims.Subject
		}
		if uid == "" {
			deny(c, http.StatusUnauthorized, 40103, "Token has no user")
			return
		}
		WithPrincipal(c, &Principal{
			UserID:      uid,
			Name:        claims.Name,
			Plant:       claims.Plant,
			Roles:       claims.Roles,
			Permissions: claims.Permissions,
		})
		c.Next()
	}
}

// RequireRole 任一角色即可通过
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil {
			deny(c, http.StatusForbidden, 40310, "No roles found")
			return
		}
		if !p.HasRole(roles...) {
			deny(c, http.StatusForbidden, 40312, "Role required: "+strings.Join(roles, " | "))
			return
		}
		c.Next()
	}
}

// RequirePermission 权限检查
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil {
			deny(c, http.StatusForbidden, 40300, "No permissions found")
			return
		}
		if !p.Can(permission) {
			deny(c, http.StatusForbidden, 40302, "Permission denied: "+permission)
			return
		}
		c.Next()
	}
}
