package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkwell/internal/metrics"
	"inkwell/internal/services"
)

// @Summary      注册页
// @Description  渲染新用户注册页面
// @Tags         auth
// @Produce      html
// @Success      200 {string} string "HTML"
// @Router       /register [get]
func (h *Handler) registerPage(c *gin.Context) {
	identity := h.currentIdentity(c)
	c.HTML(http.StatusOK, "register.html", gin.H{"viewer": h.viewer(identity)})
}

// @Summary      提交注册
// @Description  创建新账号；成功后自动登录并重定向首页。邮箱重复时在原页面提示
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Param        name      formData string true  "显示名"
// @Param        email     formData string true  "邮箱"
// @Param        password  formData string true  "口令"
// @Success      302 {string} string "重定向至 /"
// @Failure      200 {string} string "带错误提示的注册页"
// @Router       /register [post]
func (h *Handler) registerSubmit(c *gin.Context) {
	setNoCache(c)
	name := c.PostForm("name")
	email := c.PostForm("email")
	password := c.PostForm("password")

	identity := h.currentIdentity(c)
	u, err := h.userSvc.Register(c, name, email, password)
	if err != nil {
		msg := "registration failed"
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			msg = "This email is already registered."
		case errors.Is(err, services.ErrValidation):
			msg = "Name, email and password are required."
		default:
			c.String(http.StatusInternalServerError, "server_error")
			return
		}
		c.HTML(http.StatusOK, "register.html", gin.H{"error": msg, "viewer": h.viewer(identity)})
		return
	}

	// 已登录状态下再注册：直接以新账号的会话覆盖旧会话
	sess, err := h.sessionSvc.New(c, u.ID)
	if err != nil {
		c.String(http.StatusInternalServerError, "session error")
		return
	}
	h.setSessionCookie(c, sess.SID)

	ip := c.ClientIP()
	h.logSvc.Write(c, "INFO", "USER_REGISTERED", h.userSvc.IDPtr(u.ID), "account created", ip, c.GetString("request_id"))
	c.Redirect(http.StatusFound, "/")
}

// @Summary      登录页
// @Description  渲染邮箱口令登录页面
// @Tags         auth
// @Produce      html
// @Success      200 {string} string "HTML"
// @Router       /login [get]
func (h *Handler) loginPage(c *gin.Context) {
	identity := h.currentIdentity(c)
	c.HTML(http.StatusOK, "login.html", gin.H{"viewer": h.viewer(identity)})
}

// @Summary      提交登录
// @Description  使用表单提交邮箱与口令，成功后创建会话并重定向首页
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Param        email     formData string true  "邮箱"
// @Param        password  formData string true  "口令"
// @Success      302 {string} string "重定向至 /"
// @Failure      200 {string} string "带错误提示的登录页"
// @Router       /login [post]
func (h *Handler) loginSubmit(c *gin.Context) {
	setNoCache(c)
	email := c.PostForm("email")
	password := c.PostForm("password")

	identity := h.currentIdentity(c)
	u, err := h.userSvc.Authenticate(c, email, password)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, services.ErrUnknownEmail):
			msg = "That email does not exist."
		case errors.Is(err, services.ErrInvalidPassword):
			msg = "Password incorrect."
		default:
			c.String(http.StatusInternalServerError, "server_error")
			return
		}
		// 审计：登录失败
		metrics.LoginFailures.Inc()
		ip := c.ClientIP()
		h.logSvc.Write(c, "WARN", "USER_LOGIN_FAILED", nil, "bad credentials", ip, c.GetString("request_id"))
		c.HTML(http.StatusOK, "login.html", gin.H{"error": msg, "viewer": h.viewer(identity)})
		return
	}

	sess, err := h.sessionSvc.New(c, u.ID)
	if err != nil {
		c.String(http.StatusInternalServerError, "session error")
		return
	}
	h.setSessionCookie(c, sess.SID)

	// 审计：登录成功
	ip := c.ClientIP()
	h.logSvc.Write(c, "INFO", "USER_LOGIN", h.userSvc.IDPtr(u.ID), "login success", ip, c.GetString("request_id"))
	c.Redirect(http.StatusFound, "/")
}

// @Summary      注销
// @Description  删除服务端会话并清除 Cookie；未登录时重定向登录页
// @Tags         auth
// @Success      302 {string} string "重定向至 /"
// @Router       /logout [get]
func (h *Handler) logout(c *gin.Context) {
	sid := h.currentSID(c)
	if sid == "" {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	// 删除幂等：会话不存在也视为成功
	_ = h.sessionSvc.Delete(c, sid)
	h.clearSessionCookie(c)

	ip := c.ClientIP()
	h.logSvc.Write(c, "INFO", "USER_LOGOUT", nil, "logout", ip, c.GetString("request_id"))
	c.Redirect(http.StatusFound, "/")
}
