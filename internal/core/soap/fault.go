package soap

import (
	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// ============================================================================
//                              故障结构
// ============================================================================

// Fault 从线上解析出的 SOAP 故障
//
// detail/UPnPError（命名空间 urn:schemas-upnp-org:control-1-0）里的
// errorCode 与 errorDescription 逐字保留。
type Fault struct {
	// FaultCode s:Fault 的 faultcode（通常是 s:Client）
	FaultCode string

	// FaultString s:Fault 的 faultstring（通常是 UPnPError）
	FaultString string

	// Code UPnPError/errorCode
	Code int

	// Description UPnPError/errorDescription
	Description string
}

// xmlFault s:Fault 的解码结构
//
// encoding/xml 按本地名匹配，s: 前缀与 UPnPError 的命名空间都不影响解码。
type xmlFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
	Detail      struct {
		UPnPError struct {
			Code        int    `xml:"errorCode"`
			Description string `xml:"errorDescription"`
		} `xml:"UPnPError"`
	} `xml:"detail"`
}

// ControlError 把故障转换为调用方可见的控制错误
//
// 这是纯映射：错误码原样携带，是否吸收（714 之于删除、713 之于枚举）
// 由上层按动作决定，本层不做任何语义猜测。
func (f *Fault) ControlError(action string) *igdif.ControlError {
	description := f.Description
	if description == "" {
		description = f.FaultString
	}
	return &igdif.ControlError{
		Action:      action,
		Code:        f.Code,
		Description: description,
	}
}
