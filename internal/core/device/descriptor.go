package device

import (
	"net/url"
	"strings"
)

// ============================================================================
//                              描述 XML 结构
// ============================================================================

// xmlRoot 设备描述文档的根元素
type xmlRoot struct {
	URLBase string    `xml:"URLBase"`
	Device  xmlDevice `xml:"device"`
}

// xmlDevice 设备节点，可嵌套子设备
type xmlDevice struct {
	DeviceType   string       `xml:"deviceType"`
	FriendlyName string       `xml:"friendlyName"`
	UDN          string       `xml:"UDN"`
	Services     []xmlService `xml:"serviceList>service"`
	Devices      []xmlDevice  `xml:"deviceList>device"`
}

// xmlService 服务节点
type xmlService struct {
	ServiceType string `xml:"serviceType"`
	ServiceID   string `xml:"serviceId"`
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
	SCPDURL     string `xml:"SCPDURL"`
}

// ============================================================================
//                              Descriptor
// ============================================================================

// ServiceEntry 解析后的服务条目，URL 均已解析为绝对地址
type ServiceEntry struct {
	// ServiceType 服务类型 URN
	ServiceType string

	// ControlURL 控制端点
	ControlURL *url.URL

	// EventSubURL 事件订阅端点（本引擎不使用 GENA，仅保留供自省）
	EventSubURL *url.URL

	// SCPDURL 能力描述文档地址
	SCPDURL *url.URL
}

// Descriptor 解析后的设备描述
//
// 构建一次后不可变，由解析出它的网关句柄持有；两个独立发现的句柄
// 即使指向同一台物理网关也不共享缓存。
type Descriptor struct {
	// FriendlyName 设备友好名称
	FriendlyName string

	// UDN 设备唯一标识
	UDN string

	// Location 描述文档来源 URL
	Location *url.URL

	// URLBase 描述中的可选 URLBase 元素
	URLBase *url.URL

	// Services 文档序收集的全部服务条目
	Services []ServiceEntry
}

// 可识别的 WAN 连接服务族（v1/v2 共用前缀）
var connectionServicePrefixes = []string{
	"urn:schemas-upnp-org:service:WANIPConnection:",
	"urn:schemas-upnp-org:service:WANPPPConnection:",
}

// isConnectionService 判断服务类型是否属于可识别的网关控制服务族
func isConnectionService(serviceType string) bool {
	for _, prefix := range connectionServicePrefixes {
		if strings.HasPrefix(serviceType, prefix) {
			return true
		}
	}
	return false
}

// ConnectionService 返回文档序第一个可识别的 WAN 连接服务
//
// 解析成功的描述保证存在至少一个，选择是确定的：
// 即使存在多个匹配也总是取文档序第一个。
func (d *Descriptor) ConnectionService() (ServiceEntry, bool) {
	for _, svc := range d.Services {
		if isConnectionService(svc.ServiceType) {
			return svc, true
		}
	}
	return ServiceEntry{}, false
}

// ============================================================================
//                              设备树遍历
// ============================================================================

// collectServices 深度优先收集设备树中的全部服务，保持文档序
//
// 用显式栈而非递归遍历；子设备逆序入栈，出栈顺序即文档序。
func collectServices(root *xmlDevice) []xmlService {
	var services []xmlService
	stack := []*xmlDevice{root}

	for len(stack) > 0 {
		dev := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		services = append(services, dev.Services...)

		for i := len(dev.Devices) - 1; i >= 0; i-- {
			stack = append(stack, &dev.Devices[i])
		}
	}
	return services
}

// resolveRef 把描述中的相对 URL 解析为绝对地址
//
// 优先相对 URLBase 解析，缺失 URLBase 时相对 LOCATION 的
// scheme/host/port 解析。空引用返回 nil。
func resolveRef(ref string, urlBase, location *url.URL) *url.URL {
	if ref == "" {
		return nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	if parsed.IsAbs() {
		return parsed
	}
	base := location
	if urlBase != nil {
		base = urlBase
	}
	return base.ResolveReference(parsed)
}
