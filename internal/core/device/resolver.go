package device

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"

	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// 描述文档的读取上限，防御异常设备返回超大响应
const maxDescriptorSize = 1 << 20

// ============================================================================
//                              Resolver
// ============================================================================

// Resolver 设备描述解析器
//
// 共享 HTTP 传输句柄由构造方显式注入，可被多个并发解析复用。
type Resolver struct {
	http *http.Client
}

// NewResolver 创建描述解析器
func NewResolver(hc *http.Client) *Resolver {
	return &Resolver{http: hc}
}

// Resolve 获取并解析 location 处的设备描述
//
// 设备树中没有可识别的 WAN 连接服务时返回 ErrNoServiceFound；
// 网络或解析失败返回 ErrDescriptorUnreachable。
func (r *Resolver) Resolve(ctx context.Context, location *url.URL) (*Descriptor, error) {
	body, err := r.fetch(ctx, location.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", igdif.ErrDescriptorUnreachable, location, err)
	}

	var root xmlRoot
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", igdif.ErrDescriptorUnreachable, location, err)
	}

	var urlBase *url.URL
	if root.URLBase != "" {
		if parsed, err := url.Parse(root.URLBase); err == nil && parsed.IsAbs() {
			urlBase = parsed
		}
	}

	desc := &Descriptor{
		FriendlyName: root.Device.FriendlyName,
		UDN:          root.Device.UDN,
		Location:     location,
		URLBase:      urlBase,
	}

	for _, svc := range collectServices(&root.Device) {
		controlURL := resolveRef(svc.ControlURL, urlBase, location)
		if svc.ServiceType == "" || controlURL == nil {
			continue
		}
		desc.Services = append(desc.Services, ServiceEntry{
			ServiceType: svc.ServiceType,
			ControlURL:  controlURL,
			EventSubURL: resolveRef(svc.EventSubURL, urlBase, location),
			SCPDURL:     resolveRef(svc.SCPDURL, urlBase, location),
		})
	}

	if _, ok := desc.ConnectionService(); !ok {
		return nil, fmt.Errorf("%w: %s", igdif.ErrNoServiceFound, location)
	}

	logger.Debug("设备描述解析完成",
		"location", location,
		"friendlyName", desc.FriendlyName,
		"services", len(desc.Services))

	return desc, nil
}

// fetch 执行描述文档的 HTTP GET
func (r *Resolver) fetch(ctx context.Context, rawurl string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDescriptorSize))
}

// ============================================================================
//                              SCPD 自省
// ============================================================================

// SCPD 服务能力文档，列出服务支持的动作名
type SCPD struct {
	// Actions 动作名列表
	Actions []string
}

// xmlSCPD SCPD 文档结构
type xmlSCPD struct {
	Actions []struct {
		Name string `xml:"name"`
	} `xml:"actionList>action"`
}

// FetchSCPD 获取服务的能力文档
//
// 仅用于自省；五个控制操作不依赖 SCPD。
func (r *Resolver) FetchSCPD(ctx context.Context, entry ServiceEntry) (*SCPD, error) {
	if entry.SCPDURL == nil {
		return nil, fmt.Errorf("%w: service has no SCPDURL", igdif.ErrDescriptorUnreachable)
	}
	body, err := r.fetch(ctx, entry.SCPDURL.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", igdif.ErrDescriptorUnreachable, entry.SCPDURL, err)
	}

	var doc xmlSCPD
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", igdif.ErrDescriptorUnreachable, entry.SCPDURL, err)
	}

	scpd := &SCPD{}
	for _, a := range doc.Actions {
		scpd.Actions = append(scpd.Actions, a.Name)
	}
	return scpd, nil
}
