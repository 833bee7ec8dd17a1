package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkwell/internal/metrics"
	"inkwell/internal/services"
	"inkwell/internal/storage"
)

// @Summary      首页
// @Description  列出全部文章，新文章在前
// @Tags         posts
// @Produce      html
// @Success      200 {string} string "HTML"
// @Router       / [get]
func (h *Handler) index(c *gin.Context) {
	identity := h.currentIdentity(c)
	posts, err := h.postSvc.List(c)
	if err != nil {
		c.String(http.StatusInternalServerError, "server_error")
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"posts": posts, "viewer": h.viewer(identity)})
}

// @Summary      关于页
// @Tags         pages
// @Produce      html
// @Success      200 {string} string "HTML"
// @Router       /about [get]
func (h *Handler) about(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", gin.H{"viewer": h.viewer(h.currentIdentity(c))})
}

// @Summary      联系页
// @Tags         pages
// @Produce      html
// @Success      200 {string} string "HTML"
// @Router       /contact [get]
func (h *Handler) contact(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{"viewer": h.viewer(h.currentIdentity(c))})
}

// commentView 为模板展示用的评论（附作者显示名）。
type commentView struct {
	Body   string
	Author string
}

// renderPost 渲染文章详情页，评论按插入顺序并带作者名。
func (h *Handler) renderPost(c *gin.Context, identity uint64, post *storage.Post, flash string) {
	comments, err := h.commentSvc.ListByPost(c, post.ID)
	if err != nil {
		c.String(http.StatusInternalServerError, "server_error")
		return
	}
	views := make([]commentView, 0, len(comments))
	for _, cm := range comments {
		name := "unknown"
		if u, err := h.userSvc.FindByID(c, cm.AuthorID); err == nil {
			name = u.Name
		}
		views = append(views, commentView{Body: cm.Body, Author: name})
	}
	c.HTML(http.StatusOK, "post.html", gin.H{
		"post":     post,
		"comments": views,
		"error":    flash,
		"viewer":   h.viewer(identity),
	})
}

// @Summary      文章详情
// @Description  展示文章正文与全部评论
// @Tags         posts
// @Produce      html
// @Param        id  path  int  true  "文章 id"
// @Success      200 {string} string "HTML"
// @Failure      404 {string} string "not found"
// @Router       /post/{id} [get]
func (h *Handler) showPost(c *gin.Context) {
	identity := h.currentIdentity(c)
	post, err := h.postSvc.Get(c, paramID(c))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		c.String(http.StatusInternalServerError, "server_error")
		return
	}
	h.renderPost(c, identity, post, "")
}

// @Summary      追加评论
// @Description  已登录用户对文章发表评论；未登录重定向登录页
// @Tags         comments
// @Accept       x-www-form-urlencoded
// @Param        id    path     int    true  "文章 id"
// @Param        body  formData string true  "评论内容"
// @Success      302 {string} string "重定向回文章页"
// @Failure      404 {string} string "not found"
// @Router       /post/{id} [post]
func (h *Handler) addComment(c *gin.Context) {
	identity := h.currentIdentity(c)
	postID := paramID(c)
	body := c.PostForm("body")

	_, err := h.commentSvc.Add(c, identity, postID, body)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthenticated):
			c.Redirect(http.StatusFound, "/login")
		case errors.Is(err, services.ErrNotFound):
			c.String(http.StatusNotFound, "not found")
		case errors.Is(err, services.ErrValidation):
			if post, perr := h.postSvc.Get(c, postID); perr == nil {
				h.renderPost(c, identity, post, "Comment body must not be empty.")
				return
			}
			c.String(http.StatusNotFound, "not found")
		default:
			c.String(http.StatusInternalServerError, "server_error")
		}
		return
	}
	metrics.CommentsCreated.Inc()
	ip := c.ClientIP()
	h.logSvc.Write(c, "INFO", "COMMENT_CREATED", h.userSvc.IDPtr(identity), "comment added", ip, c.GetString("request_id"))
	c.Redirect(http.StatusFound, "/post/"+c.Param("id"))
}

// guardAdminPage 在渲染管理页面前做鉴权：匿名重定向登录页，非管理员 403。
// 写操作本身仍由服务层再次校验。
func (h *Handler) guardAdminPage(c *gin.Context) (uint64, bool) {
	identity := h.currentIdentity(c)
	if err := services.RequireAdministrator(identity); err != nil {
		h.rejectAuthz(c, err)
		return identity, false
	}
	return identity, true
}

// rejectAuthz 将鉴权错误翻译为 HTTP 响应：未登录重定向，非管理员 403。
func (h *Handler) rejectAuthz(c *gin.Context, err error) {
	if errors.Is(err, services.ErrUnauthenticated) {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.String(http.StatusForbidden, "forbidden")
}

func postInputFromForm(c *gin.Context) services.PostInput {
	return services.PostInput{
		Title:    c.PostForm("title"),
		Subtitle: c.PostForm("subtitle"),
		Body:     c.PostForm("body"),
		ImageURL: c.PostForm("img_url"),
	}
}

// @Summary      新建文章页
// @Tags         posts
// @Produce      html
// @Success      200 {string} string "HTML"
// @Failure      403 {string} string "forbidden"
// @Router       /new-post [get]
func (h *Handler) newPostPage(c *gin.Context) {
	identity, ok := h.guardAdminPage(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "make-post.html", gin.H{"viewer": h.viewer(identity)})
}

// @Summary      提交新文章
// @Description  仅管理员；字段齐全且标题全局唯一
// @Tags         posts
// @Accept       x-www-form-urlencoded
// @Param        title     formData string true "标题"
// @Param        subtitle  formData string true "副标题"
// @Param        body      formData string true "正文"
// @Param        img_url   formData string true "题图 URL"
// @Success      302 {string} string "重定向至 /"
// @Failure      403 {string} string "forbidden"
// @Router       /new-post [post]
func (h *Handler) newPostSubmit(c *gin.Context) {
	identity := h.currentIdentity(c)
	in := postInputFromForm(c)

	post, err := h.postSvc.Create(c, identity, in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrForbidden):
			h.rejectAuthz(c, err)
		case errors.Is(err, services.ErrValidation):
			c.HTML(http.StatusOK, "make-post.html", gin.H{"error": "All fields are required.", "form": in, "viewer": h.viewer(identity)})
		case errors.Is(err, services.ErrDuplicateTitle):
			c.HTML(http.StatusOK, "make-post.html", gin.H{"error": "A post with that title already exists.", "form": in, "viewer": h.viewer(identity)})
		default:
			c.String(http.StatusInternalServerError, "server_error")
		}
		return
	}
	metrics.PostsCreated.Inc()
	ip := c.ClientIP()
	h.logSvc.Write(c, "INFO", "POST_CREATED", h.userSvc.IDPtr(identity), post.Title, ip, c.GetString("request_id"))
	c.Redirect(http.StatusFound, "/")
}

// @Summary      编辑文章页
// @Tags         posts
// @Produce      html
// @Param        id  path  int  true  "文章 id"
// @Success      200 {string} string "HTML"
// @Failure      403 {string} string "forbidden"
// @Failure      404 {string} string "not found"
// @Router       /edit-post/{id} [get]
func (h *Handler) editPostPage(c *gin.Context) {
	identity, ok := h.guardAdminPage(c)
	if !ok {
		return
	}
	post, err := h.postSvc.Get(c, paramID(c))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		c.String(http.StatusInternalServerError, "server_error")
		return
	}
	form := services.PostInput{Title: post.Title, Subtitle: post.Subtitle, Body: post.Body, ImageURL: post.ImageURL}
	c.HTML(http.StatusOK, "make-post.html", gin.H{"form": form, "editID": post.ID, "viewer": h.viewer(identity)})
}

// @Summary      提交文章编辑
// @Description  仅管理员；覆盖标题/副标题/正文/配图，作者与日期不变
// @Tags         posts
// @Accept       x-www-form-urlencoded
// @Param        id  path  int  true  "文章 id"
// @Success      302 {string} string "重定向至文章页"
// @Failure      403 {string} string "forbidden"
// @Failure      404 {string} string "not found"
// @Router       /edit-post/{id} [post]
func (h *Handler) editPostSubmit(c *gin.Context) {
	identity := h.currentIdentity(c)
	id := paramID(c)
	in := postInputFromForm(c)

	post, err := h.postSvc.Edit(c, identity, id, in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrForbidden):
			h.rejectAuthz(c, err)
		case errors.Is(err, services.ErrNotFound):
			c.String(http.StatusNotFound, "not found")
		case errors.Is(err, services.ErrValidation):
			c.HTML(http.StatusOK, "make-post.html", gin.H{"error": "All fields are required.", "form": in, "editID": id, "viewer": h.viewer(identity)})
		case errors.Is(err, services.ErrDuplicateTitle):
			c.HTML(http.StatusOK, "make-post.html", gin.H{"error": "A post with that title already exists.", "form": in, "editID": id, "viewer": h.viewer(identity)})
		default:
			c.String(http.StatusInternalServerError, "server_error")
		}
		return
	}
	ip := c.ClientIP()
	h.logSvc.Write(c, "INFO", "POST_EDITED", h.userSvc.IDPtr(identity), post.Title, ip, c.GetString("request_id"))
	c.Redirect(http.StatusFound, "/post/"+c.Param("id"))
}

// @Summary      删除文章
// @Description  仅管理员；同一事务内级联删除文章与其评论
// @Tags         posts
// @Param        id  path  int  true  "文章 id"
// @Success      302 {string} string "重定向至 /"
// @Failure      403 {string} string "forbidden"
// @Failure      404 {string} string "not found"
// @Router       /delete/{id} [get]
func (h *Handler) deletePost(c *gin.Context) {
	identity := h.currentIdentity(c)
	id := paramID(c)

	if err := h.postSvc.Delete(c, identity, id); err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrForbidden):
			h.rejectAuthz(c, err)
		case errors.Is(err, services.ErrNotFound):
			c.String(http.StatusNotFound, "not found")
		default:
			c.String(http.StatusInternalServerError, "server_error")
		}
		return
	}
	ip := c.ClientIP()
	h.logSvc.Write(c, "INFO", "POST_DELETED", h.userSvc.IDPtr(identity), c.Param("id"), ip, c.GetString("request_id"))
	c.Redirect(http.StatusFound, "/")
}
