package handlers

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inkwell/internal/config"
	"inkwell/internal/services"
	"inkwell/internal/storage"
	"inkwell/internal/utils"
)

// memorySessionStore 以内存 map 模拟会话存储所需的最小 Redis 能力。
type memorySessionStore struct {
	data map[string]string
}

func (m *memorySessionStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memorySessionStore) Get(ctx context.Context, key string) *redis.StringCmd {
	if v, ok := m.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *memorySessionStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type testApp struct {
	router     *gin.Engine
	cfg        config.Config
	userSvc    *services.UserService
	sessionSvc *services.SessionService
	postSvc    *services.PostService
}

// testTemplates 提供与 web/templates 同名的极简模板，避免测试依赖磁盘路径。
func testTemplates() *template.Template {
	tpl := template.New("root")
	for name, body := range map[string]string{
		"index.html":     `{{range .posts}}<a href="/post/{{.ID}}">{{.Title}}</a>{{end}}`,
		"post.html":      `<h1>{{.post.Title}}</h1>{{range .comments}}<p>{{.Body}} by {{.Author}}</p>{{end}}{{.error}}`,
		"login.html":     `login:{{.error}}`,
		"register.html":  `register:{{.error}}`,
		"make-post.html": `make-post:{{.error}}`,
		"about.html":     `about`,
		"contact.html":   `contact`,
	} {
		template.Must(tpl.New(name).Parse(body))
	}
	return tpl
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))

	cfg := config.Load()
	cfg.Session.TTL = time.Hour

	userSvc := services.NewUserService(db)
	sessionSvc := services.NewSessionService(&memorySessionStore{data: make(map[string]string)}, cfg)
	postSvc := services.NewPostService(db)
	commentSvc := services.NewCommentService(db)
	logSvc := services.NewLogService(db)

	router := gin.New()
	router.SetHTMLTemplate(testTemplates())
	h := New(cfg, userSvc, sessionSvc, postSvc, commentSvc, logSvc)
	h.RegisterRoutes(router)

	return &testApp{router: router, cfg: cfg, userSvc: userSvc, sessionSvc: sessionSvc, postSvc: postSvc}
}

// seedUsers 建立管理员（id=1）与普通用户（id=2）。
func (a *testApp) seedUsers(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	admin, err := a.userSvc.Register(ctx, "Admin", "admin@x.com", "secret")
	require.NoError(t, err)
	require.Equal(t, services.AdminUserID, admin.ID)
	_, err = a.userSvc.Register(ctx, "Alice", "alice@x.com", "pw1")
	require.NoError(t, err)
}

// sessionCookie 为指定用户建立会话并返回已签名的 Cookie。
func (a *testApp) sessionCookie(t *testing.T, userID uint64) *http.Cookie {
	t.Helper()
	sess, err := a.sessionSvc.New(context.Background(), userID)
	require.NoError(t, err)
	return &http.Cookie{
		Name:  a.cfg.Session.CookieName,
		Value: utils.SignValue(a.cfg.Session.Secret, sess.SID),
	}
}

func (a *testApp) do(t *testing.T, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, "GET", "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestHomePageAnonymous(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)
	_, err := app.postSvc.Create(context.Background(), services.AdminUserID,
		services.PostInput{Title: "Hello", Subtitle: "s", Body: "b", ImageURL: "i"})
	require.NoError(t, err)

	rec := app.do(t, "GET", "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Hello")
}

func TestAdminRouteRedirectsAnonymousToLogin(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)

	rec := app.do(t, "GET", "/new-post", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAdminRouteForbiddenForRegularUser(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)
	cookie := app.sessionCookie(t, 2)

	for _, path := range []string{"/new-post", "/edit-post/1", "/delete/1"} {
		rec := app.do(t, "GET", path, nil, cookie)
		require.Equal(t, http.StatusForbidden, rec.Code, "path %s", path)
	}
}

func TestRegisterAutoLogin(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{"name": {"Bob"}, "email": {"bob@x.com"}, "password": {"pw"}}
	rec := app.do(t, "POST", "/register", form, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == app.cfg.Session.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "registration must establish a session")
	sid, ok := utils.VerifyValue(app.cfg.Session.Secret, sessionCookie.Value)
	require.True(t, ok)
	require.Equal(t, uint64(1), app.sessionSvc.Identity(context.Background(), sid))
}

func TestRegisterDuplicateEmailShowsFlash(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)

	form := url.Values{"name": {"Other"}, "email": {"alice@x.com"}, "password": {"pw"}}
	rec := app.do(t, "POST", "/register", form, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "already registered")
}

func TestLoginWrongPasswordShowsFlash(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)

	rec := app.do(t, "POST", "/login", url.Values{"email": {"alice@x.com"}, "password": {"wrong"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Password incorrect")

	rec = app.do(t, "POST", "/login", url.Values{"email": {"nobody@x.com"}, "password": {"pw"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "does not exist")
}

func TestLoginThenLogout(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)

	rec := app.do(t, "POST", "/login", url.Values{"email": {"alice@x.com"}, "password": {"pw1"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == app.cfg.Session.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	rec = app.do(t, "GET", "/logout", nil, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	// 注销后 Cookie 对应的会话已失效，再访问管理页回到登录
	rec = app.do(t, "GET", "/new-post", nil, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogoutWithoutSessionRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, "GET", "/logout", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestCreatePostAsAdmin(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)
	cookie := app.sessionCookie(t, services.AdminUserID)

	form := url.Values{"title": {"Hello"}, "subtitle": {"s"}, "body": {"b"}, "img_url": {"i"}}
	rec := app.do(t, "POST", "/new-post", form, cookie)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = app.do(t, "GET", "/post/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Hello")

	// 标题重复：停留在表单页并提示
	rec = app.do(t, "POST", "/new-post", form, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "already exists")
}

func TestShowMissingPost(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, "GET", "/post/999", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentFlow(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)
	admin := app.sessionCookie(t, services.AdminUserID)
	user := app.sessionCookie(t, 2)

	form := url.Values{"title": {"Hello"}, "subtitle": {"s"}, "body": {"b"}, "img_url": {"i"}}
	rec := app.do(t, "POST", "/new-post", form, admin)
	require.Equal(t, http.StatusFound, rec.Code)

	// 未登录评论：重定向登录
	rec = app.do(t, "POST", "/post/1", url.Values{"body": {"hi"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	// 不存在的文章：404
	rec = app.do(t, "POST", "/post/999", url.Values{"body": {"hi"}}, user)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// 正常评论后回到文章页并可见
	rec = app.do(t, "POST", "/post/1", url.Values{"body": {"nice post"}}, user)
	require.Equal(t, http.StatusFound, rec.Code)
	rec = app.do(t, "GET", "/post/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "nice post")
	require.Contains(t, rec.Body.String(), "Alice")
}

func TestDeletePostAsAdmin(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)
	admin := app.sessionCookie(t, services.AdminUserID)
	user := app.sessionCookie(t, 2)

	form := url.Values{"title": {"Hello"}, "subtitle": {"s"}, "body": {"b"}, "img_url": {"i"}}
	rec := app.do(t, "POST", "/new-post", form, admin)
	require.Equal(t, http.StatusFound, rec.Code)
	rec = app.do(t, "POST", "/post/1", url.Values{"body": {"hi"}}, user)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = app.do(t, "GET", "/delete/1", nil, admin)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = app.do(t, "GET", "/post/1", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, "GET", "/delete/1", nil, admin)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditPostAsAdmin(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)
	admin := app.sessionCookie(t, services.AdminUserID)

	form := url.Values{"title": {"Hello"}, "subtitle": {"s"}, "body": {"b"}, "img_url": {"i"}}
	rec := app.do(t, "POST", "/new-post", form, admin)
	require.Equal(t, http.StatusFound, rec.Code)

	edit := url.Values{"title": {"Renamed"}, "subtitle": {"s2"}, "body": {"b2"}, "img_url": {"i2"}}
	rec = app.do(t, "POST", "/edit-post/1", edit, admin)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/post/1", rec.Header().Get("Location"))

	rec = app.do(t, "GET", "/post/1", nil, nil)
	require.Contains(t, rec.Body.String(), "Renamed")
}

func TestTamperedSessionCookieIsAnonymous(t *testing.T) {
	app := newTestApp(t)
	app.seedUsers(t)
	cookie := app.sessionCookie(t, services.AdminUserID)
	cookie.Value = cookie.Value + "x"

	rec := app.do(t, "GET", "/new-post", nil, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}
