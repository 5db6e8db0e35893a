package gateway

import (
	"context"
	"fmt"
	"net"

	"github.com/dep2p/go-igd/internal/core/device"
	"github.com/dep2p/go-igd/internal/core/soap"
	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// ============================================================================
//                              Device 门面
// ============================================================================

// Device 网关设备门面
//
// 把一个已解析的设备描述与绑定其控制端点的端口映射服务组合起来，
// 实现 igd.Gateway。除不可变描述外不持有状态；每次调用都是独立往返，
// 调用之间没有顺序依赖（路由器自身强加的除外），可以并发使用。
type Device struct {
	desc  *device.Descriptor
	entry device.ServiceEntry
	svc   *Service
}

// 编译期接口断言
var _ igdif.Gateway = (*Device)(nil)

// New 从设备描述构造网关门面
//
// 选取描述中文档序第一个 WAN 连接服务并绑定其控制端点。
// 解析成功的描述保证存在该服务，这里再防御一次以保持不变式。
func New(desc *device.Descriptor, client *soap.Client) (*Device, error) {
	entry, ok := desc.ConnectionService()
	if !ok {
		return nil, fmt.Errorf("%w: %s", igdif.ErrNoServiceFound, desc.Location)
	}
	return &Device{
		desc:  desc,
		entry: entry,
		svc:   NewService(client, entry.ControlURL, entry.ServiceType),
	}, nil
}

// FriendlyName 返回设备友好名称
func (d *Device) FriendlyName() string { return d.desc.FriendlyName }

// UDN 返回设备唯一标识
func (d *Device) UDN() string { return d.desc.UDN }

// Location 返回设备描述文档 URL
func (d *Device) Location() string { return d.desc.Location.String() }

// ServiceType 返回绑定的服务类型 URN
func (d *Device) ServiceType() string { return d.entry.ServiceType }

// Descriptor 返回底层设备描述（不可变）
func (d *Device) Descriptor() *device.Descriptor { return d.desc }

// ExternalIP 查询网关外部 IP
func (d *Device) ExternalIP(ctx context.Context) (net.IP, error) {
	return d.svc.ExternalIP(ctx)
}

// CreateMapping 创建端口映射
//
// m.InternalClient 为空时填充为本机在网关子网上的地址。
func (d *Device) CreateMapping(ctx context.Context, m igdif.Mapping) error {
	if m.InternalClient == "" {
		ip, err := d.InternalClient()
		if err != nil {
			return err
		}
		m.InternalClient = ip.String()
	}
	return d.svc.CreateMapping(ctx, m)
}

// DeleteMapping 删除端口映射（幂等）
func (d *Device) DeleteMapping(ctx context.Context, proto igdif.Protocol, externalPort uint16) error {
	return d.svc.DeleteMapping(ctx, proto, externalPort)
}

// ListMappings 枚举当前映射表
func (d *Device) ListMappings(ctx context.Context) ([]igdif.Mapping, error) {
	return d.svc.ListMappings(ctx)
}

// SpecificMapping 查询指定映射
func (d *Device) SpecificMapping(ctx context.Context, proto igdif.Protocol, externalPort uint16) (*igdif.Mapping, error) {
	return d.svc.SpecificMapping(ctx, proto, externalPort)
}

// InternalClient 返回本机在网关子网上的地址
//
// 从描述 LOCATION 的主机部分取网关地址，在本机接口中找包含
// 该地址的子网。每次调用即时计算，门面不为此保留可变状态。
func (d *Device) InternalClient() (net.IP, error) {
	host := d.desc.Location.Hostname()
	gatewayIP := net.ParseIP(host)
	if gatewayIP == nil {
		return nil, fmt.Errorf("igd: gateway host %q is not an IP", host)
	}
	if gatewayIP.IsLoopback() {
		return gatewayIP, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("igd: list interfaces: %w", err)
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ipNet.Contains(gatewayIP) {
				return ipNet.IP, nil
			}
		}
	}
	return nil, fmt.Errorf("igd: no local address on gateway subnet %s", host)
}
