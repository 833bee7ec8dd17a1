package main

// 博客端到端巡检工具：按真实浏览器的方式（Cookie 会话 + 表单提交）
// 走一遍注册/登录/评论/管理员发文流程，用于部署后的冒烟验证。

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var verbose bool
var baseURL *url.URL

// scenario 封装一次端到端巡检过程中共享的资源。
type scenario struct {
	client *http.Client
}

func banner(title string) {
	log.Printf("\n=== %s ===", title)
}

func step(format string, args ...interface{}) {
	log.Printf(" • "+format, args...)
}

func main() {
	var (
		base          string
		adminEmail    string
		adminPassword string
		timeout       time.Duration
	)

	flag.StringVar(&base, "base", "http://127.0.0.1:8080", "Base URL of the blog server")
	flag.StringVar(&adminEmail, "admin-email", "admin@example.com", "Administrator email for post management checks")
	flag.StringVar(&adminPassword, "admin-password", "123465", "Administrator password")
	flag.DurationVar(&timeout, "timeout", 20*time.Second, "HTTP timeout for requests")
	flag.BoolVar(&verbose, "v", true, "Verbose logging")
	flag.Parse()

	var err error
	baseURL, err = url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		log.Fatalf("parse base url: %v", err)
	}

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar, Timeout: timeout}

	sc := &scenario{client: client}
	sc.run(adminEmail, adminPassword)
}

func (s *scenario) run(adminEmail, adminPassword string) {
	must := func(err error, msg string) {
		if err != nil {
			log.Fatalf("%s: %v", msg, err)
		}
	}

	log.Printf("E2E start -> %s", baseURL)

	banner("Health Checks")
	step("Probe /healthz")
	must(s.expectOK("/healthz"), "healthz")
	step("Probe /metrics")
	must(s.expectOK("/metrics"), "metrics")
	step("Render home page")
	must(s.expectOK("/"), "home")
	step("Render static pages")
	must(s.expectOK("/about"), "about")
	must(s.expectOK("/contact"), "contact")

	banner("Visitor Registration & Login")
	name := fmt.Sprintf("e2e_%d", time.Now().UnixNano())
	email := name + "@example.com"
	step("Register %s", email)
	must(s.postForm("/register", url.Values{"name": {name}, "email": {email}, "password": {"P@ssw0rd9"}}), "register")
	step("Logout")
	must(s.expectOK("/logout"), "logout")
	step("Login with wrong password (expect error page)")
	must(s.postForm("/login", url.Values{"email": {email}, "password": {"wrong"}}), "login wrong password")
	step("Login with correct password")
	must(s.postForm("/login", url.Values{"email": {email}, "password": {"P@ssw0rd9"}}), "login")

	banner("Administrator Post Management")
	step("Login as administrator")
	must(s.postForm("/login", url.Values{"email": {adminEmail}, "password": {adminPassword}}), "admin login")
	title := "E2E smoke " + name
	step("Create post %q", title)
	must(s.postForm("/new-post", url.Values{
		"title":    {title},
		"subtitle": {"automated smoke check"},
		"body":     {"This post was created by the e2e walker."},
		"img_url":  {"https://example.com/cover.png"},
	}), "create post")

	step("Locate post on home page")
	postPath, err := s.findPostLink(title)
	must(err, "find post link")
	step("Post lives at %s", postPath)

	banner("Commenting")
	step("Comment on the new post")
	must(s.postForm(postPath, url.Values{"body": {"first!"}}), "add comment")

	banner("Cleanup")
	step("Delete post")
	must(s.expectOK("/delete/"+strings.TrimPrefix(postPath, "/post/")), "delete post")
	step("Logout administrator")
	must(s.expectOK("/logout"), "admin logout")

	log.Printf("E2E finished OK")
}

// expectOK 对路径发起 GET 并要求最终状态码为 2xx。
func (s *scenario) expectOK(path string) error {
	resp, err := s.client.Get(baseURL.ResolveReference(mustURL(path)).String())
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return nil
}

// postForm 提交表单并要求最终状态码为 2xx（重定向由 client 自动跟随）。
func (s *scenario) postForm(path string, form url.Values) error {
	resp, err := s.client.PostForm(baseURL.ResolveReference(mustURL(path)).String(), form)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	return nil
}

// findPostLink 解析首页 HTML，返回链接文本包含 title 的 /post/<id> 路径。
func (s *scenario) findPostLink(title string) (string, error) {
	resp, err := s.client.Get(baseURL.String() + "/")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", err
	}
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, a := range n.Attr {
				if a.Key == "href" {
					href = a.Val
				}
			}
			if strings.HasPrefix(href, "/post/") && strings.Contains(textContent(n), title) {
				found = href
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found == "" {
		return "", fmt.Errorf("post %q not found on home page", title)
	}
	return found, nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func mustURL(p string) *url.URL {
	u, err := url.Parse(p)
	if err != nil {
		log.Fatalf("parse url %q: %v", p, err)
	}
	return u
}
