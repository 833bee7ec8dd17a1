package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"inkwell/internal/config"
	"inkwell/internal/metrics"
	"inkwell/internal/services"
	"inkwell/internal/utils"
)

// Handler 聚合所有依赖（配置、服务）并注册所有 HTTP 路由。
type Handler struct {
	cfg        config.Config
	userSvc    *services.UserService
	sessionSvc *services.SessionService
	postSvc    *services.PostService
	commentSvc *services.CommentService
	logSvc     *services.LogService
}

// New 构造 Handler，将各领域服务注入，用于后续路由注册与处理。
func New(cfg config.Config, us *services.UserService, ss *services.SessionService, ps *services.PostService, cs *services.CommentService, ls *services.LogService) *Handler {
	return &Handler{cfg: cfg, userSvc: us, sessionSvc: ss, postSvc: ps, commentSvc: cs, logSvc: ls}
}

// RegisterRoutes 在 Gin 路由上挂载博客的全部端点。
// HTML 模板由调用方预先加载（main 使用 LoadHTMLGlob，测试可注入内存模板）。
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// 公开页面
	r.GET("/", h.index)
	r.GET("/about", h.about)
	r.GET("/contact", h.contact)
	r.GET("/post/:id", h.showPost)

	// 注册与登录
	r.GET("/register", h.registerPage)
	r.POST("/register", h.registerSubmit)
	r.GET("/login", h.loginPage)
	r.POST("/login", h.loginSubmit)
	r.GET("/logout", h.logout)

	// 评论（需登录）
	r.POST("/post/:id", h.addComment)

	// 文章管理（仅管理员）
	r.GET("/new-post", h.newPostPage)
	r.POST("/new-post", h.newPostSubmit)
	r.GET("/edit-post/:id", h.editPostPage)
	r.POST("/edit-post/:id", h.editPostSubmit)
	r.GET("/delete/:id", h.deletePost)

	// 运维端点
	r.GET("/metrics", h.metrics)
	r.GET("/healthz", h.healthz)
}

// @Summary      Prometheus 指标
// @Description  暴露 Prometheus 指标（text/plain; version=0.0.4）
// @Tags         ops
// @Produce      plain
// @Success      200 {string} string
// @Router       /metrics [get]
func (h *Handler) metrics(c *gin.Context) { metrics.Exposer()(c) }

// @Summary      健康检查
// @Tags         ops
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /healthz [get]
func (h *Handler) healthz(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) }

// --- 会话与身份辅助 ---

// currentIdentity 从签名 Cookie 解析当前请求的身份；匿名返回 AnonymousID。
// 身份解析后总是以显式参数传入服务层，不保存任何全局“当前用户”。
func (h *Handler) currentIdentity(c *gin.Context) uint64 {
	sid := h.currentSID(c)
	if sid == "" {
		return services.AnonymousID
	}
	return h.sessionSvc.Identity(c, sid)
}

// currentSID 读取并校验会话 Cookie，返回其中的 sid；签名不合法视为无会话。
func (h *Handler) currentSID(c *gin.Context) string {
	raw, err := c.Cookie(h.cfg.Session.CookieName)
	if err != nil || raw == "" {
		return ""
	}
	sid, ok := utils.VerifyValue(h.cfg.Session.Secret, raw)
	if !ok {
		return ""
	}
	return sid
}

// setSessionCookie 将签名后的 sid 写入浏览器 Cookie。
func (h *Handler) setSessionCookie(c *gin.Context, sid string) {
	cookie := &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    utils.SignValue(h.cfg.Session.Secret, sid),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
	}
	switch strings.ToLower(h.cfg.Session.CookieSameSite) {
	case "strict":
		cookie.SameSite = http.SameSiteStrictMode
	case "none":
		cookie.SameSite = http.SameSiteNoneMode
	default:
		cookie.SameSite = http.SameSiteLaxMode
	}
	if h.cfg.Session.CookieDomain != "" {
		cookie.Domain = h.cfg.Session.CookieDomain
	}
	http.SetCookie(c.Writer, cookie)
}

// clearSessionCookie 使会话 Cookie 立即过期。
func (h *Handler) clearSessionCookie(c *gin.Context) {
	cookie := &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
	}
	if h.cfg.Session.CookieDomain != "" {
		cookie.Domain = h.cfg.Session.CookieDomain
	}
	http.SetCookie(c.Writer, cookie)
}

// viewer 构造模板公用的访问者信息（是否登录、是否管理员）。
func (h *Handler) viewer(identity uint64) gin.H {
	return gin.H{
		"identity": identity,
		"loggedIn": identity != services.AnonymousID,
		"isAdmin":  services.IsAdministrator(identity),
	}
}

// paramID 解析路径中的数字 id；非法值按 0 返回。
func paramID(c *gin.Context) uint64 {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// setNoCache 为敏感响应添加禁止缓存的标准响应头。
func setNoCache(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
