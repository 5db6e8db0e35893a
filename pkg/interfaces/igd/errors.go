package igd

import (
	"errors"
	"fmt"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 发现与解析错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoGatewayFound 搜索窗口内没有发现可用网关
	//
	// 注意：SSDP 搜索本身没有应答属于正常的空结果；只有在需要
	// 返回单个网关的便捷入口（DiscoverGateway）上才会转化为此错误。
	ErrNoGatewayFound = errors.New("igd: no gateway found")

	// ErrNoServiceFound 设备树中没有可识别的 WAN 连接服务
	ErrNoServiceFound = errors.New("igd: no WAN connection service in device description")

	// ErrDescriptorUnreachable 设备描述文档获取或解析失败
	ErrDescriptorUnreachable = errors.New("igd: device description unreachable")

	// ────────────────────────────────────────────────────────────────────────
	// 控制调用错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrTransport 连接 / DNS / HTTP 层失败
	//
	// 本层不重试，重试策略由调用方决定。
	ErrTransport = errors.New("igd: transport failure")

	// ErrMalformedResponse 响应体不是合法 XML
	ErrMalformedResponse = errors.New("igd: malformed response")

	// ErrMappingNotFound 针对性查询没有找到对应映射
	ErrMappingNotFound = errors.New("igd: mapping not found")
)

// ============================================================================
//                              ControlError
// ============================================================================

// ControlError 协议层拒绝
//
// 错误码与描述逐字保留自路由器返回的 UPnPError，供调用方诊断。
// 不同固件对等价条件可能返回不同错误码，本层不猜测未记录的语义。
type ControlError struct {
	// Action 触发错误的动作名
	Action string

	// Code UPnP 错误码
	Code int

	// Description 路由器返回的错误描述
	Description string
}

func (e *ControlError) Error() string {
	name := FaultName(e.Code)
	if name != "" {
		return fmt.Sprintf("igd: %s: UPnP error %d (%s): %s", e.Action, e.Code, name, e.Description)
	}
	return fmt.Sprintf("igd: %s: UPnP error %d: %s", e.Action, e.Code, e.Description)
}

// ============================================================================
//                              UPnP 错误码
// ============================================================================

// WANIPConnection 服务定义的错误码
//
// 713 和 714 在特定动作上有本地语义（见 Gateway 文档），
// 其余错误码原样传递给调用方。
const (
	// FaultInvalidAction 动作不被识别
	FaultInvalidAction = 401

	// FaultInvalidArgs 参数无效
	FaultInvalidArgs = 402

	// FaultActionFailed 动作执行失败
	FaultActionFailed = 501

	// FaultInvalidArgumentValue 参数值无效
	FaultInvalidArgumentValue = 600

	// FaultActionNotAuthorized 动作未被授权
	FaultActionNotAuthorized = 606

	// FaultSpecifiedArrayIndexInvalid 枚举索引越界（表结束信号）
	FaultSpecifiedArrayIndexInvalid = 713

	// FaultNoSuchEntryInArray 指定条目不存在
	FaultNoSuchEntryInArray = 714

	// FaultWildCardNotPermittedInSrcIP 源地址不允许通配
	FaultWildCardNotPermittedInSrcIP = 715

	// FaultWildCardNotPermittedInExtPort 外部端口不允许通配
	FaultWildCardNotPermittedInExtPort = 716

	// FaultConflictInMappingEntry 映射条目冲突
	FaultConflictInMappingEntry = 718

	// FaultSamePortValuesRequired 内外端口必须一致
	FaultSamePortValuesRequired = 724

	// FaultOnlyPermanentLeasesSupported 仅支持无限期租期
	FaultOnlyPermanentLeasesSupported = 725

	// FaultRemoteHostOnlySupportsWildcard 远端主机仅支持通配
	FaultRemoteHostOnlySupportsWildcard = 726

	// FaultExternalPortOnlySupportsWildcard 外部端口仅支持通配
	FaultExternalPortOnlySupportsWildcard = 727

	// FaultNoPortMapsAvailable 映射表已满
	FaultNoPortMapsAvailable = 728

	// FaultConflictWithOtherMechanisms 与其他机制冲突
	FaultConflictWithOtherMechanisms = 729
)

// FaultName 返回已记录错误码的规范名称，未记录的返回空串
func FaultName(code int) string {
	switch code {
	case FaultInvalidAction:
		return "InvalidAction"
	case FaultInvalidArgs:
		return "InvalidArgs"
	case FaultActionFailed:
		return "ActionFailed"
	case FaultInvalidArgumentValue:
		return "InvalidArgumentValue"
	case FaultActionNotAuthorized:
		return "ActionNotAuthorized"
	case FaultSpecifiedArrayIndexInvalid:
		return "SpecifiedArrayIndexInvalid"
	case FaultNoSuchEntryInArray:
		return "NoSuchEntryInArray"
	case FaultWildCardNotPermittedInSrcIP:
		return "WildCardNotPermittedInSrcIP"
	case FaultWildCardNotPermittedInExtPort:
		return "WildCardNotPermittedInExtPort"
	case FaultConflictInMappingEntry:
		return "ConflictInMappingEntry"
	case FaultSamePortValuesRequired:
		return "SamePortValuesRequired"
	case FaultOnlyPermanentLeasesSupported:
		return "OnlyPermanentLeasesSupported"
	case FaultRemoteHostOnlySupportsWildcard:
		return "RemoteHostOnlySupportsWildcard"
	case FaultExternalPortOnlySupportsWildcard:
		return "ExternalPortOnlySupportsWildcard"
	case FaultNoPortMapsAvailable:
		return "NoPortMapsAvailable"
	case FaultConflictWithOtherMechanisms:
		return "ConflictWithOtherMechanisms"
	default:
		return ""
	}
}
