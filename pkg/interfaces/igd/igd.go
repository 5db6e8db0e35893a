// Package igd 定义 UPnP IGD 网关相关接口
//
// IGD 模块负责互联网网关设备的发现与端口映射控制，包括：
// - SSDP 多播发现
// - 设备描述解析
// - 外部地址查询
// - 端口映射的创建、删除与枚举
package igd

import (
	"context"
	"net"
)

// ============================================================================
//                              基础类型
// ============================================================================

// Protocol 端口映射协议
type Protocol string

const (
	// TCP TCP 协议
	TCP Protocol = "TCP"

	// UDP UDP 协议
	UDP Protocol = "UDP"
)

// Valid 检查协议值是否合法
func (p Protocol) Valid() bool {
	return p == TCP || p == UDP
}

// Family SSDP 搜索使用的地址族
type Family int

const (
	// FamilyIPv4 IPv4 多播（239.255.255.250:1900）
	FamilyIPv4 Family = iota

	// FamilyIPv6 IPv6 链路本地多播（[ff02::c]:1900）
	FamilyIPv6
)

// String 返回地址族的字符串表示
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Mapping 类型
// ============================================================================

// Mapping 端口映射条目
//
// 路由器侧的身份键是 (Protocol, ExternalPort)；其余字段是负载而非身份。
// 映射表可能被其他控制点并发修改，因此枚举结果永远是即时查询，不做缓存。
type Mapping struct {
	// Protocol 协议（TCP 或 UDP）
	Protocol Protocol

	// ExternalPort 网关外部端口
	ExternalPort uint16

	// InternalPort 内部主机端口
	InternalPort uint16

	// InternalClient 内部主机地址
	InternalClient string

	// Description 映射描述
	Description string

	// Enabled 映射是否启用
	Enabled bool

	// LeaseDuration 租期（秒），0 表示无限期（部分路由器支持）
	LeaseDuration uint32
}

// Matches 按路由器侧身份键 (Protocol, ExternalPort) 比较
func (m Mapping) Matches(proto Protocol, externalPort uint16) bool {
	return m.Protocol == proto && m.ExternalPort == externalPort
}

// ============================================================================
//                              Gateway 接口
// ============================================================================

// Gateway 互联网网关设备接口
//
// 绑定一个已解析的设备描述与其控制端点。实现不持有可变状态，
// 每次调用都是独立的往返请求，可以并发、重复调用。
type Gateway interface {
	// FriendlyName 返回设备的友好名称
	FriendlyName() string

	// UDN 返回设备的唯一标识（Unique Device Name）
	UDN() string

	// Location 返回设备描述文档的 URL
	Location() string

	// ServiceType 返回绑定的 WAN 连接服务类型 URN
	ServiceType() string

	// ExternalIP 查询网关的外部 IP 地址
	ExternalIP(ctx context.Context) (net.IP, error)

	// CreateMapping 创建端口映射
	//
	// m.InternalClient 为空时自动填充为本机在网关子网上的地址。
	// 路由器拒绝时返回 *ControlError（例如 718 ConflictInMappingEntry）。
	CreateMapping(ctx context.Context, m Mapping) error

	// DeleteMapping 删除端口映射
	//
	// 幂等：删除不存在的映射不是错误（路由器报告的 714 被吸收）。
	DeleteMapping(ctx context.Context, proto Protocol, externalPort uint16) error

	// ListMappings 枚举当前全部端口映射
	//
	// 每次调用都向路由器重新查询，不使用缓存。
	ListMappings(ctx context.Context) ([]Mapping, error)

	// SpecificMapping 查询指定 (协议, 外部端口) 的映射
	//
	// 映射不存在时返回 ErrMappingNotFound。
	SpecificMapping(ctx context.Context, proto Protocol, externalPort uint16) (*Mapping, error)

	// InternalClient 返回本机在网关子网上的地址
	InternalClient() (net.IP, error)
}
