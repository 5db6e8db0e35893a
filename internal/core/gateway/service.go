package gateway

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/dep2p/go-igd/internal/core/soap"
	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// 枚举的安全上限，防御永远不返回 713 的异常固件
const maxEnumerationEntries = 65535

// ============================================================================
//                              Service
// ============================================================================

// Service 绑定单个控制端点的端口映射服务
//
// 每个操作对应一次 SOAP 调用；除构造时绑定的端点信息外没有可变状态。
type Service struct {
	soap        *soap.Client
	controlURL  *url.URL
	serviceType string
}

// NewService 创建端口映射服务
func NewService(client *soap.Client, controlURL *url.URL, serviceType string) *Service {
	return &Service{
		soap:        client,
		controlURL:  controlURL,
		serviceType: serviceType,
	}
}

// invoke 对绑定端点执行一次动作
func (s *Service) invoke(ctx context.Context, action string, args []soap.Arg) (*soap.Response, error) {
	return s.soap.Invoke(ctx, s.controlURL, s.serviceType, action, args)
}

// ============================================================================
//                              五个操作
// ============================================================================

// ExternalIP 查询网关外部 IP
func (s *Service) ExternalIP(ctx context.Context) (net.IP, error) {
	resp, err := s.invoke(ctx, "GetExternalIPAddress", nil)
	if err != nil {
		return nil, err
	}
	raw := resp.Get("NewExternalIPAddress")
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, fmt.Errorf("%w: GetExternalIPAddress: bad address %q", igdif.ErrMalformedResponse, raw)
	}
	return ip, nil
}

// CreateMapping 创建端口映射
//
// m.InternalClient 必须已填充；NewRemoteHost 固定为空（任意远端）。
// 路由器拒绝原样上抛（如 718 ConflictInMappingEntry）。
func (s *Service) CreateMapping(ctx context.Context, m igdif.Mapping) error {
	if !m.Protocol.Valid() {
		return fmt.Errorf("igd: invalid protocol %q", m.Protocol)
	}

	_, err := s.invoke(ctx, "AddPortMapping", []soap.Arg{
		{Name: "NewRemoteHost", Value: ""},
		{Name: "NewExternalPort", Value: formatPort(m.ExternalPort)},
		{Name: "NewProtocol", Value: string(m.Protocol)},
		{Name: "NewInternalPort", Value: formatPort(m.InternalPort)},
		{Name: "NewInternalClient", Value: m.InternalClient},
		{Name: "NewEnabled", Value: formatBool(m.Enabled)},
		{Name: "NewPortMappingDescription", Value: m.Description},
		{Name: "NewLeaseDuration", Value: strconv.FormatUint(uint64(m.LeaseDuration), 10)},
	})
	if err != nil {
		return err
	}

	logger.Debug("端口映射已创建",
		"proto", m.Protocol,
		"externalPort", m.ExternalPort,
		"internalPort", m.InternalPort,
		"lease", m.LeaseDuration)
	return nil
}

// DeleteMapping 删除端口映射
//
// 幂等：路由器报告 714 (NoSuchEntryInArray) 时视为成功。
func (s *Service) DeleteMapping(ctx context.Context, proto igdif.Protocol, externalPort uint16) error {
	if !proto.Valid() {
		return fmt.Errorf("igd: invalid protocol %q", proto)
	}

	_, err := s.invoke(ctx, "DeletePortMapping", []soap.Arg{
		{Name: "NewRemoteHost", Value: ""},
		{Name: "NewExternalPort", Value: formatPort(externalPort)},
		{Name: "NewProtocol", Value: string(proto)},
	})
	return absorbDeleteFault(err)
}

// ListMappings 枚举映射表
//
// 用递增的零基索引逐条调用 GetGenericPortMappingEntry，
// 713 终止枚举（表结束），其余故障上抛。每次调用都是即时查询。
func (s *Service) ListMappings(ctx context.Context) ([]igdif.Mapping, error) {
	var mappings []igdif.Mapping

	for index := 0; index < maxEnumerationEntries; index++ {
		resp, err := s.invoke(ctx, "GetGenericPortMappingEntry", []soap.Arg{
			{Name: "NewPortMappingIndex", Value: strconv.Itoa(index)},
		})
		if err != nil {
			if isEndOfTable(err) {
				break
			}
			return nil, err
		}

		m, err := mappingFromResponse(resp, resp.Get("NewProtocol"), resp.Get("NewExternalPort"))
		if err != nil {
			return nil, fmt.Errorf("%w: GetGenericPortMappingEntry[%d]: %v", igdif.ErrMalformedResponse, index, err)
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

// SpecificMapping 查询指定 (协议, 外部端口) 的映射
//
// 路由器报告对应的"条目不存在"故障时返回 ErrMappingNotFound。
func (s *Service) SpecificMapping(ctx context.Context, proto igdif.Protocol, externalPort uint16) (*igdif.Mapping, error) {
	if !proto.Valid() {
		return nil, fmt.Errorf("igd: invalid protocol %q", proto)
	}

	resp, err := s.invoke(ctx, "GetSpecificPortMappingEntry", []soap.Arg{
		{Name: "NewRemoteHost", Value: ""},
		{Name: "NewExternalPort", Value: formatPort(externalPort)},
		{Name: "NewProtocol", Value: string(proto)},
	})
	if err != nil {
		return nil, translateLookupFault(err)
	}

	// 针对性查询的响应不回显协议与外部端口，用请求值补齐
	m, err := mappingFromResponse(resp, string(proto), formatPort(externalPort))
	if err != nil {
		return nil, fmt.Errorf("%w: GetSpecificPortMappingEntry: %v", igdif.ErrMalformedResponse, err)
	}
	return &m, nil
}

// ============================================================================
//                              线格式辅助
// ============================================================================

// mappingFromResponse 从响应输出参数组装映射条目
func mappingFromResponse(resp *soap.Response, proto, externalPort string) (igdif.Mapping, error) {
	extPort, err := parsePort(externalPort)
	if err != nil {
		return igdif.Mapping{}, fmt.Errorf("external port: %w", err)
	}
	intPort, err := parsePort(resp.Get("NewInternalPort"))
	if err != nil {
		return igdif.Mapping{}, fmt.Errorf("internal port: %w", err)
	}

	var lease uint32
	if raw := resp.Get("NewLeaseDuration"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return igdif.Mapping{}, fmt.Errorf("lease duration: %w", err)
		}
		lease = uint32(v)
	}

	return igdif.Mapping{
		Protocol:       igdif.Protocol(proto),
		ExternalPort:   extPort,
		InternalPort:   intPort,
		InternalClient: resp.Get("NewInternalClient"),
		Description:    resp.Get("NewPortMappingDescription"),
		Enabled:        parseBool(resp.Get("NewEnabled")),
		LeaseDuration:  lease,
	}, nil
}

// formatPort 端口的线格式序列化，与宿主 locale 无关
func formatPort(port uint16) string {
	return strconv.FormatUint(uint64(port), 10)
}

func parsePort(raw string) (uint16, error) {
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// formatBool 布尔的线格式是 "1" / "0"
func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func parseBool(raw string) bool {
	return raw == "1" || raw == "true"
}
