package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config 保存进程级配置（仅使用配置文件或内置默认值）。
// 字段提供开发友好的默认值；生产环境请在 config.yaml 中覆盖。
type Config struct {
	Env       string
	HTTPAddr  string
	MySQL     MySQLConfig
	Redis     RedisConfig
	Session   SessionConfig
	Bootstrap BootstrapConfig
}

type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Params   string
}

func (m MySQLConfig) DSN() string {
	port := m.Port
	if port == 0 {
		port = 3306
	}
	host := m.Host
	if host == "" {
		host = "127.0.0.1"
	}
	db := m.DBName
	if db == "" {
		db = "inkwell"
	}
	params := m.Params
	if params == "" {
		params = "parseTime=true&loc=Local&charset=utf8mb4,utf8"
	}
	// 注意：Password 可能为空（本地无密码开发），生产强烈建议设置强密码
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", m.User, m.Password, host, port, db, params)
}

func (m MySQLConfig) DSNMasked() string {
	masked := m
	if masked.Password != "" {
		masked.Password = "******"
	}
	return masked.DSN()
}

type RedisConfig struct {
	Addr     string
	DB       int
	Password string
}

// SessionConfig 控制浏览器会话 Cookie 与服务端会话的生命周期。
// Secret 用于对会话 Cookie 做 HMAC 签名，必须为高熵随机值，且只应通过配置文件注入，
// 不得写入代码或版本控制。
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string // 取值：lax、strict、none
	Secret         string
	TTL            time.Duration
}

// BootstrapConfig 包含一次性初始化数据（仅在用户表为空时应用）。
type BootstrapConfig struct {
	InitialAdmin InitialAdminConfig
}

// InitialAdminConfig 描述站点管理员账号。管理员由固定的用户 id=1 识别，
// 空库启动时的引导注册保证该账号恰好取得 id=1。
type InitialAdminConfig struct {
	Enable   bool
	Name     string
	Email    string
	Password string
}

// Load 生成配置：先使用内置默认值，再用同目录的配置文件（config.yaml/yml/json）覆盖。
// 默认：MySQL 127.0.0.1:3306 用户 root/123456；Redis 127.0.0.1:6379 无密码。
func Load() Config {
	// 1) 默认值（本地开发可直接运行）
	cfg := Config{
		Env:      "dev",
		HTTPAddr: ":8080",
		MySQL:    MySQLConfig{Host: "127.0.0.1", Port: 3306, User: "root", Password: "123456", DBName: "inkwell", Params: "parseTime=true&loc=Local&charset=utf8mb4,utf8"},
		Redis:    RedisConfig{Addr: "127.0.0.1:6379", DB: 0, Password: ""},
		Session:  SessionConfig{CookieName: "blog_session", CookieDomain: "", CookieSecure: false, CookieSameSite: "lax", Secret: "dev-session-secret-change-me", TTL: 24 * time.Hour},
		Bootstrap: BootstrapConfig{
			InitialAdmin: InitialAdminConfig{Enable: true, Name: "Administrator", Email: "admin@example.com", Password: "123465"},
		},
	}

	// 2) 配置文件覆盖（若存在）
	if path := FirstExisting("config.yaml", "config.yml", "config.json"); path != "" {
		_ = loadFromFile(path, &cfg)
	}
	return cfg
}

// 配置文件格式：YAML 或 JSON。仅非零值会覆盖现有字段。
func loadFromFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var fm fileModel
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(b, &fm); err != nil {
			return err
		}
	} else if ext == ".json" || ext == "" {
		if err := json.Unmarshal(b, &fm); err != nil {
			return err
		}
	} else {
		return errors.New("unsupported config file format")
	}
	fm.apply(cfg)
	return nil
}

// --- 配置文件模型与合并逻辑 ---

type fileModel struct {
	Env       string         `yaml:"env" json:"env"`
	HTTPAddr  string         `yaml:"http_addr" json:"http_addr"`
	MySQL     *fileMySQL     `yaml:"mysql" json:"mysql"`
	Redis     *fileRedis     `yaml:"redis" json:"redis"`
	Session   *fileSession   `yaml:"session" json:"session"`
	Bootstrap *fileBootstrap `yaml:"bootstrap" json:"bootstrap"`
}

type fileMySQL struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	DBName   string `yaml:"db" json:"db"`
	Params   string `yaml:"params" json:"params"`
}
type fileRedis struct {
	Addr     string `yaml:"addr" json:"addr"`
	DB       int    `yaml:"db" json:"db"`
	Password string `yaml:"password" json:"password"`
}
type fileSession struct {
	CookieName     string `yaml:"cookie_name" json:"cookie_name"`
	CookieDomain   string `yaml:"cookie_domain" json:"cookie_domain"`
	CookieSecure   *bool  `yaml:"cookie_secure" json:"cookie_secure"`
	CookieSameSite string `yaml:"cookie_samesite" json:"cookie_samesite"`
	Secret         string `yaml:"secret" json:"secret"`
	TTL            string `yaml:"ttl" json:"ttl"`
}
type fileBootstrap struct {
	InitialAdmin *fileAdmin `yaml:"initial_admin" json:"initial_admin"`
}
type fileAdmin struct {
	Enable   *bool  `yaml:"enable" json:"enable"`
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
}

func (fm *fileModel) apply(cfg *Config) {
	if fm.Env != "" {
		cfg.Env = fm.Env
	}
	if fm.HTTPAddr != "" {
		cfg.HTTPAddr = fm.HTTPAddr
	}
	if fm.MySQL != nil {
		if fm.MySQL.Host != "" {
			cfg.MySQL.Host = fm.MySQL.Host
		}
		if fm.MySQL.Port != 0 {
			cfg.MySQL.Port = fm.MySQL.Port
		}
		if fm.MySQL.User != "" {
			cfg.MySQL.User = fm.MySQL.User
		}
		if fm.MySQL.Password != "" {
			cfg.MySQL.Password = fm.MySQL.Password
		}
		if fm.MySQL.DBName != "" {
			cfg.MySQL.DBName = fm.MySQL.DBName
		}
		if fm.MySQL.Params != "" {
			cfg.MySQL.Params = fm.MySQL.Params
		}
	}
	if fm.Redis != nil {
		if fm.Redis.Addr != "" {
			cfg.Redis.Addr = fm.Redis.Addr
		}
		if fm.Redis.DB != 0 {
			cfg.Redis.DB = fm.Redis.DB
		}
		if fm.Redis.Password != "" {
			cfg.Redis.Password = fm.Redis.Password
		}
	}
	if fm.Session != nil {
		if fm.Session.CookieName != "" {
			cfg.Session.CookieName = fm.Session.CookieName
		}
		if fm.Session.CookieDomain != "" {
			cfg.Session.CookieDomain = fm.Session.CookieDomain
		}
		if fm.Session.CookieSecure != nil {
			cfg.Session.CookieSecure = *fm.Session.CookieSecure
		}
		if fm.Session.CookieSameSite != "" {
			cfg.Session.CookieSameSite = fm.Session.CookieSameSite
		}
		if fm.Session.Secret != "" {
			cfg.Session.Secret = fm.Session.Secret
		}
		if fm.Session.TTL != "" {
			if d, err := time.ParseDuration(fm.Session.TTL); err == nil {
				cfg.Session.TTL = d
			}
		}
	}
	if fm.Bootstrap != nil && fm.Bootstrap.InitialAdmin != nil {
		ia := fm.Bootstrap.InitialAdmin
		if ia.Enable != nil {
			cfg.Bootstrap.InitialAdmin.Enable = *ia.Enable
		}
		if ia.Name != "" {
			cfg.Bootstrap.InitialAdmin.Name = ia.Name
		}
		if ia.Email != "" {
			cfg.Bootstrap.InitialAdmin.Email = ia.Email
		}
		if ia.Password != "" {
			cfg.Bootstrap.InitialAdmin.Password = ia.Password
		}
	}
}

// FirstExisting 按顺序返回第一个存在的文件路径；若都不存在则返回空字符串。
// 注意：该函数用于在多路径间进行容错查找，如配置文件或静态资源位置。
func FirstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
