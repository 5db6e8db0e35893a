package igd

import (
	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

// 公共类型定义在 pkg/interfaces/igd，根包提供别名方便直接使用。

type (
	// Gateway 网关设备接口
	Gateway = igdif.Gateway

	// Mapping 端口映射条目
	Mapping = igdif.Mapping

	// Protocol 端口映射协议
	Protocol = igdif.Protocol

	// Config IGD 模块配置
	Config = igdif.Config

	// Option 配置选项
	Option = igdif.Option

	// ControlError 协议层拒绝
	ControlError = igdif.ControlError
)

// 协议常量
const (
	// TCP TCP 协议
	TCP = igdif.TCP

	// UDP UDP 协议
	UDP = igdif.UDP
)

// 常用 UPnP 错误码（完整列表见 pkg/interfaces/igd）
const (
	// FaultInvalidAction 动作不被识别
	FaultInvalidAction = igdif.FaultInvalidAction

	// FaultSpecifiedArrayIndexInvalid 枚举索引越界（表结束信号）
	FaultSpecifiedArrayIndexInvalid = igdif.FaultSpecifiedArrayIndexInvalid

	// FaultNoSuchEntryInArray 指定条目不存在
	FaultNoSuchEntryInArray = igdif.FaultNoSuchEntryInArray

	// FaultConflictInMappingEntry 映射条目冲突
	FaultConflictInMappingEntry = igdif.FaultConflictInMappingEntry

	// FaultOnlyPermanentLeasesSupported 仅支持无限期租期
	FaultOnlyPermanentLeasesSupported = igdif.FaultOnlyPermanentLeasesSupported
)

// FaultName 返回已记录错误码的规范名称，未记录的返回空串
func FaultName(code int) string { return igdif.FaultName(code) }

// ════════════════════════════════════════════════════════════════════════════
//                              配置入口
// ════════════════════════════════════════════════════════════════════════════

// DefaultConfig 返回默认配置
func DefaultConfig() *Config { return igdif.DefaultConfig() }

// 配置选项（实现在 pkg/interfaces/igd）
var (
	// WithSearchWindow 设置 SSDP 搜索窗口
	WithSearchWindow = igdif.WithSearchWindow

	// WithSearchTargets 设置 M-SEARCH 的 ST 目标列表
	WithSearchTargets = igdif.WithSearchTargets

	// WithIPv4 启用或禁用 IPv4 搜索
	WithIPv4 = igdif.WithIPv4

	// WithIPv6 启用或禁用 IPv6 搜索
	WithIPv6 = igdif.WithIPv6

	// WithSearchAddrIPv4 覆盖 IPv4 搜索目的地址（用于测试替身）
	WithSearchAddrIPv4 = igdif.WithSearchAddrIPv4

	// WithSearchAddrIPv6 覆盖 IPv6 搜索目的地址（用于测试替身）
	WithSearchAddrIPv6 = igdif.WithSearchAddrIPv6

	// WithHTTPTimeout 设置 HTTP 超时
	WithHTTPTimeout = igdif.WithHTTPTimeout

	// WithHTTPClient 注入共享 HTTP 传输句柄
	WithHTTPClient = igdif.WithHTTPClient
)

// ════════════════════════════════════════════════════════════════════════════
//                              错误别名
// ════════════════════════════════════════════════════════════════════════════

// 与 pkg/interfaces/igd 中的哨兵错误是同一个值，errors.Is 语义一致。
var (
	// ErrNoGatewayFound 搜索窗口内没有发现可用网关
	ErrNoGatewayFound = igdif.ErrNoGatewayFound

	// ErrNoServiceFound 设备树中没有可识别的 WAN 连接服务
	ErrNoServiceFound = igdif.ErrNoServiceFound

	// ErrDescriptorUnreachable 描述文档获取或解析失败
	ErrDescriptorUnreachable = igdif.ErrDescriptorUnreachable

	// ErrTransport 连接 / HTTP 层失败
	ErrTransport = igdif.ErrTransport

	// ErrMalformedResponse 响应体不是合法 XML
	ErrMalformedResponse = igdif.ErrMalformedResponse

	// ErrMappingNotFound 针对性查询未命中
	ErrMappingNotFound = igdif.ErrMappingNotFound
)
