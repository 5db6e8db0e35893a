package igd

import (
	"errors"
	"net/http"
	"time"
)

// Config IGD 模块配置
type Config struct {
	// SearchWindow SSDP 搜索窗口（对应 M-SEARCH 的 MX 上限）
	SearchWindow time.Duration

	// SearchTargets M-SEARCH 的 ST 目标列表
	//
	// 部分设备对 ssdp:all 只应答第一个描述（往往不是 IGD），
	// 因此默认同时发送 IGD 设备 URN 与 rootdevice 两类目标。
	SearchTargets []string

	// EnableIPv4 在 IPv4 多播组上搜索
	EnableIPv4 bool

	// EnableIPv6 在 IPv6 链路本地多播组上搜索
	EnableIPv6 bool

	// SearchAddrIPv4 IPv4 搜索目的地址（默认 239.255.255.250:1900）
	SearchAddrIPv4 string

	// SearchAddrIPv6 IPv6 搜索目的地址（默认 [ff02::c]:1900）
	SearchAddrIPv6 string

	// HTTPTimeout 描述获取与控制调用的 HTTP 超时
	HTTPTimeout time.Duration

	// HTTPClient 共享 HTTP 传输句柄
	//
	// 显式注入而非隐式全局，便于多个网关句柄复用同一个传输，
	// 并发安全由 http.Client 自身保证。为 nil 时按 HTTPTimeout 新建。
	HTTPClient *http.Client
}

// 默认搜索参数
const (
	// DefaultSearchWindow 默认搜索窗口
	DefaultSearchWindow = 3 * time.Second

	// DefaultHTTPTimeout 默认 HTTP 超时
	DefaultHTTPTimeout = 8 * time.Second

	// DefaultSearchAddrIPv4 IPv4 SSDP 多播组
	DefaultSearchAddrIPv4 = "239.255.255.250:1900"

	// DefaultSearchAddrIPv6 IPv6 链路本地 SSDP 多播组
	DefaultSearchAddrIPv6 = "[ff02::c]:1900"
)

// DefaultSearchTargets 返回默认的 ST 目标列表
func DefaultSearchTargets() []string {
	return []string{
		"urn:schemas-upnp-org:device:InternetGatewayDevice:1",
		"urn:schemas-upnp-org:device:InternetGatewayDevice:2",
		"ssdp:rootdevice",
	}
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		SearchWindow:   DefaultSearchWindow,
		SearchTargets:  DefaultSearchTargets(),
		EnableIPv4:     true,
		EnableIPv6:     false,
		SearchAddrIPv4: DefaultSearchAddrIPv4,
		SearchAddrIPv6: DefaultSearchAddrIPv6,
		HTTPTimeout:    DefaultHTTPTimeout,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("igd: config is nil")
	}
	if c.SearchWindow <= 0 {
		return errors.New("igd: search window must be positive")
	}
	if len(c.SearchTargets) == 0 {
		return errors.New("igd: at least one search target required")
	}
	if !c.EnableIPv4 && !c.EnableIPv6 {
		return errors.New("igd: at least one address family required")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("igd: http timeout must be positive")
	}
	return nil
}

// ApplyOptions 应用函数式选项
func (c *Config) ApplyOptions(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ============================================================================
//                              函数式选项
// ============================================================================

// Option 配置选项
type Option func(*Config)

// WithSearchWindow 设置 SSDP 搜索窗口
func WithSearchWindow(d time.Duration) Option {
	return func(c *Config) { c.SearchWindow = d }
}

// WithSearchTargets 设置 M-SEARCH 的 ST 目标列表
func WithSearchTargets(targets ...string) Option {
	return func(c *Config) { c.SearchTargets = targets }
}

// WithIPv4 启用或禁用 IPv4 搜索
func WithIPv4(enable bool) Option {
	return func(c *Config) { c.EnableIPv4 = enable }
}

// WithIPv6 启用或禁用 IPv6 搜索
func WithIPv6(enable bool) Option {
	return func(c *Config) { c.EnableIPv6 = enable }
}

// WithSearchAddrIPv4 覆盖 IPv4 搜索目的地址（用于测试替身）
func WithSearchAddrIPv4(addr string) Option {
	return func(c *Config) { c.SearchAddrIPv4 = addr }
}

// WithSearchAddrIPv6 覆盖 IPv6 搜索目的地址（用于测试替身）
func WithSearchAddrIPv6(addr string) Option {
	return func(c *Config) { c.SearchAddrIPv6 = addr }
}

// WithHTTPTimeout 设置 HTTP 超时
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Config) { c.HTTPTimeout = d }
}

// WithHTTPClient 注入共享 HTTP 传输句柄
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}
