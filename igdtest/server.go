// Package igdtest 提供实现网关线协议的测试替身
//
// 替身实现外部协作者契约的三个面：
//   - 描述路径上应答 GET，返回合法的设备描述 XML（含嵌套 deviceList）
//   - 控制路径上应答 POST，支持端口映射的五个动作，
//     按精确的成功 / 故障信封形状返回
//   - SSDP 响应器应答 M-SEARCH，单播回 200 OK（携带 LOCATION/ST/USN）
//
// 动作分发在协议边界就把 SOAPACTION 字符串转换为类型化动作标识，
// 未识别的动作名确定性地映射为故障 401。每个动作都可以用 Override
// 注册覆盖钩子，未覆盖的动作落到内置的默认行为（内存映射表）。
package igdtest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// ============================================================================
//                              动作标识
// ============================================================================

// Action 类型化的动作标识
type Action string

// 支持的五个动作
const (
	ActionGetExternalIPAddress        Action = "GetExternalIPAddress"
	ActionAddPortMapping              Action = "AddPortMapping"
	ActionDeletePortMapping           Action = "DeletePortMapping"
	ActionGetGenericPortMappingEntry  Action = "GetGenericPortMappingEntry"
	ActionGetSpecificPortMappingEntry Action = "GetSpecificPortMappingEntry"
)

// knownActions 合法动作集合，SOAPACTION 解析后立即查验
var knownActions = map[Action]bool{
	ActionGetExternalIPAddress:        true,
	ActionAddPortMapping:              true,
	ActionDeletePortMapping:           true,
	ActionGetGenericPortMappingEntry:  true,
	ActionGetSpecificPortMappingEntry: true,
}

// Fault 替身返回的 UPnP 故障
type Fault struct {
	Code        int
	Description string
}

// Faultf 构造故障
func Faultf(code int, format string, args ...any) *Fault {
	return &Fault{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Values 动作的输入或输出参数
type Values map[string]string

// Handler 单个动作的处理函数：返回输出参数或故障
type Handler func(args Values) (Values, *Fault)

// ============================================================================
//                              Server
// ============================================================================

// Server 网关测试替身
type Server struct {
	// ExternalIP GetExternalIPAddress 返回的地址
	ExternalIP string

	// FriendlyName 描述文档中的设备名
	FriendlyName string

	// ServiceType 描述与故障信封使用的服务类型 URN
	ServiceType string

	mu        sync.Mutex
	mappings  []igdif.Mapping
	overrides map[Action]Handler

	httpSrv *httptest.Server

	ssdpConn *net.UDPConn
	ssdpWG   sync.WaitGroup
}

// NewServer 启动网关替身
func NewServer() *Server {
	s := &Server{
		ExternalIP:   "203.0.113.5",
		FriendlyName: "igdtest gateway",
		ServiceType:  "urn:schemas-upnp-org:service:WANIPConnection:1",
		overrides:    make(map[Action]Handler),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rootDesc.xml", s.handleDescriptor)
	mux.HandleFunc("/ctl", s.handleControl)
	s.httpSrv = httptest.NewServer(mux)
	return s
}

// Close 停止替身并释放全部资源
func (s *Server) Close() {
	if s.ssdpConn != nil {
		s.ssdpConn.Close()
		s.ssdpWG.Wait()
	}
	s.httpSrv.Close()
}

// DescriptorURL 返回描述文档地址
func (s *Server) DescriptorURL() string {
	return s.httpSrv.URL + "/rootDesc.xml"
}

// Override 注册动作覆盖钩子
//
// 覆盖返回 (nil, nil) 时落回默认行为。
func (s *Server) Override(action Action, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[action] = h
}

// Mappings 返回映射表副本
func (s *Server) Mappings() []igdif.Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]igdif.Mapping, len(s.mappings))
	copy(out, s.mappings)
	return out
}

// SetMappings 预置映射表
func (s *Server) SetMappings(mappings ...igdif.Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = append([]igdif.Mapping(nil), mappings...)
}

// ============================================================================
//                              描述文档
// ============================================================================

// handleDescriptor 应答设备描述 GET
//
// 服务藏在两层 deviceList 下面，与真实 IGD 的
// InternetGatewayDevice/WANDevice/WANConnectionDevice 布局一致；
// controlURL 是相对地址，解析方必须相对 LOCATION 解析。
func (s *Server) handleDescriptor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml; charset=\"utf-8\"")
	fmt.Fprintf(w, `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:InternetGatewayDevice:1</deviceType>
    <friendlyName>%s</friendlyName>
    <UDN>uuid:igdtest-0000</UDN>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:WANDevice:1</deviceType>
        <friendlyName>WANDevice</friendlyName>
        <UDN>uuid:igdtest-0001</UDN>
        <deviceList>
          <device>
            <deviceType>urn:schemas-upnp-org:device:WANConnectionDevice:1</deviceType>
            <friendlyName>WANConnectionDevice</friendlyName>
            <UDN>uuid:igdtest-0002</UDN>
            <serviceList>
              <service>
                <serviceType>%s</serviceType>
                <serviceId>urn:upnp-org:serviceId:WANIPConn1</serviceId>
                <controlURL>/ctl</controlURL>
                <eventSubURL>/evt</eventSubURL>
                <SCPDURL>/WANIPCn.xml</SCPDURL>
              </service>
            </serviceList>
          </device>
        </deviceList>
      </device>
    </deviceList>
  </device>
</root>`, s.FriendlyName, s.ServiceType)
}

// ============================================================================
//                              控制端点
// ============================================================================

// handleControl 应答控制 POST
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	action, ok := parseSOAPAction(r.Header.Get("SOAPACTION"))
	body, _ := io.ReadAll(r.Body)
	args := parseArgs(body)

	if !ok || !knownActions[action] {
		s.writeFault(w, string(action), Faultf(igdif.FaultInvalidAction, "Invalid Action"))
		return
	}

	s.mu.Lock()
	override := s.overrides[action]
	s.mu.Unlock()

	var out Values
	var fault *Fault
	if override != nil {
		out, fault = override(args)
	}
	if out == nil && fault == nil {
		out, fault = s.dispatch(action, args)
	}

	if fault != nil {
		s.writeFault(w, string(action), fault)
		return
	}
	s.writeResponse(w, string(action), out)
}

// dispatch 类型化动作分发（默认行为）
func (s *Server) dispatch(action Action, args Values) (Values, *Fault) {
	switch action {
	case ActionGetExternalIPAddress:
		return Values{"NewExternalIPAddress": s.ExternalIP}, nil
	case ActionAddPortMapping:
		return s.addMapping(args)
	case ActionDeletePortMapping:
		return s.deleteMapping(args)
	case ActionGetGenericPortMappingEntry:
		return s.genericEntry(args)
	case ActionGetSpecificPortMappingEntry:
		return s.specificEntry(args)
	default:
		return nil, Faultf(igdif.FaultInvalidAction, "Invalid Action")
	}
}

func (s *Server) addMapping(args Values) (Values, *Fault) {
	extPort, err1 := strconv.ParseUint(args["NewExternalPort"], 10, 16)
	intPort, err2 := strconv.ParseUint(args["NewInternalPort"], 10, 16)
	proto := igdif.Protocol(args["NewProtocol"])
	if err1 != nil || err2 != nil || !proto.Valid() {
		return nil, Faultf(igdif.FaultInvalidArgs, "Invalid Args")
	}
	var lease uint64
	if raw := args["NewLeaseDuration"]; raw != "" {
		lease, _ = strconv.ParseUint(raw, 10, 32)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mappings {
		if m.Matches(proto, uint16(extPort)) {
			return nil, Faultf(igdif.FaultConflictInMappingEntry, "ConflictInMappingEntry")
		}
	}
	s.mappings = append(s.mappings, igdif.Mapping{
		Protocol:       proto,
		ExternalPort:   uint16(extPort),
		InternalPort:   uint16(intPort),
		InternalClient: args["NewInternalClient"],
		Description:    args["NewPortMappingDescription"],
		Enabled:        args["NewEnabled"] == "1",
		LeaseDuration:  uint32(lease),
	})
	return Values{}, nil
}

func (s *Server) deleteMapping(args Values) (Values, *Fault) {
	extPort, err := strconv.ParseUint(args["NewExternalPort"], 10, 16)
	proto := igdif.Protocol(args["NewProtocol"])
	if err != nil || !proto.Valid() {
		return nil, Faultf(igdif.FaultInvalidArgs, "Invalid Args")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.mappings {
		if m.Matches(proto, uint16(extPort)) {
			s.mappings = append(s.mappings[:i], s.mappings[i+1:]...)
			return Values{}, nil
		}
	}
	return nil, Faultf(igdif.FaultNoSuchEntryInArray, "NoSuchEntryInArray")
}

func (s *Server) genericEntry(args Values) (Values, *Fault) {
	index, err := strconv.Atoi(args["NewPortMappingIndex"])
	if err != nil || index < 0 {
		return nil, Faultf(igdif.FaultInvalidArgs, "Invalid Args")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= len(s.mappings) {
		return nil, Faultf(igdif.FaultSpecifiedArrayIndexInvalid, "SpecifiedArrayIndexInvalid")
	}
	return mappingValues(s.mappings[index], true), nil
}

func (s *Server) specificEntry(args Values) (Values, *Fault) {
	extPort, err := strconv.ParseUint(args["NewExternalPort"], 10, 16)
	proto := igdif.Protocol(args["NewProtocol"])
	if err != nil || !proto.Valid() {
		return nil, Faultf(igdif.FaultInvalidArgs, "Invalid Args")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mappings {
		if m.Matches(proto, uint16(extPort)) {
			return mappingValues(m, false), nil
		}
	}
	return nil, Faultf(igdif.FaultNoSuchEntryInArray, "NoSuchEntryInArray")
}

// mappingValues 组装条目的输出参数
//
// 针对性查询的响应按规范不回显协议与外部端口。
func mappingValues(m igdif.Mapping, echoIdentity bool) Values {
	out := Values{
		"NewInternalPort":           strconv.FormatUint(uint64(m.InternalPort), 10),
		"NewInternalClient":         m.InternalClient,
		"NewEnabled":                wireBool(m.Enabled),
		"NewPortMappingDescription": m.Description,
		"NewLeaseDuration":          strconv.FormatUint(uint64(m.LeaseDuration), 10),
	}
	if echoIdentity {
		out["NewRemoteHost"] = ""
		out["NewExternalPort"] = strconv.FormatUint(uint64(m.ExternalPort), 10)
		out["NewProtocol"] = string(m.Protocol)
	}
	return out
}

func wireBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// ============================================================================
//                              信封读写
// ============================================================================

// parseSOAPAction 在协议边界把 SOAPACTION 头转换为类型化动作
func parseSOAPAction(header string) (Action, bool) {
	header = strings.Trim(header, `"`)
	_, name, ok := strings.Cut(header, "#")
	if !ok || name == "" {
		return "", false
	}
	return Action(name), true
}

// parseArgs 收集请求信封里动作元素的参数
func parseArgs(body []byte) Values {
	args := make(Values)
	dec := xml.NewDecoder(bytes.NewReader(body))

	depth := 0
	var current string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return args
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			// Envelope=1 Body=2 Action=3 参数=4
			if depth == 4 {
				current = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if current != "" {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 4 && current != "" {
				args[current] = text.String()
				current = ""
			}
			depth--
		}
	}
}

// writeResponse 写成功信封 <u:ActionNameResponse>
func (s *Server) writeResponse(w http.ResponseWriter, action string, out Values) {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"` +
		` s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`)
	fmt.Fprintf(&b, `<u:%sResponse xmlns:u=%q>`, action, s.ServiceType)
	for name, value := range out {
		fmt.Fprintf(&b, "<%s>", name)
		_ = xml.EscapeText(&b, []byte(value))
		fmt.Fprintf(&b, "</%s>", name)
	}
	fmt.Fprintf(&b, "</u:%sResponse>", action)
	b.WriteString("</s:Body></s:Envelope>")

	w.Header().Set("Content-Type", "text/xml; charset=\"utf-8\"")
	_, _ = w.Write(b.Bytes())
}

// writeFault 写故障信封，detail/UPnPError 携带错误码与描述
func (s *Server) writeFault(w http.ResponseWriter, action string, f *Fault) {
	w.Header().Set("Content-Type", "text/xml; charset=\"utf-8\"")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <s:Fault>
      <faultcode>s:Client</faultcode>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>%d</errorCode>
          <errorDescription>%s</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`, f.Code, f.Description)
}

// ============================================================================
//                              SSDP 响应器
// ============================================================================

// ServeSSDP 启动 UDP 响应器，应答 M-SEARCH
//
// 返回响应器监听地址；搜索方把搜索目的地址指向它即可。
// 响应器随 Server.Close 停止。
func (s *Server) ServeSSDP() (string, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return "", err
	}
	s.ssdpConn = conn

	s.ssdpWG.Add(1)
	go func() {
		defer s.ssdpWG.Done()
		buf := make([]byte, 2048)
		for {
			n, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			req := string(buf[:n])
			if !strings.HasPrefix(req, "M-SEARCH") {
				continue
			}
			st := searchTarget(req)
			reply := fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
				"CACHE-CONTROL: max-age=1800\r\n"+
				"EXT:\r\n"+
				"LOCATION: %s\r\n"+
				"SERVER: igdtest/1.0 UPnP/1.1\r\n"+
				"ST: %s\r\n"+
				"USN: uuid:igdtest-0000::%s\r\n\r\n",
				s.DescriptorURL(), st, st)
			_, _ = conn.WriteToUDP([]byte(reply), src)
		}
	}()

	return conn.LocalAddr().String(), nil
}

// searchTarget 从 M-SEARCH 报文提取 ST 头
func searchTarget(req string) string {
	for _, line := range strings.Split(req, "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "ST") {
			return strings.TrimSpace(value)
		}
	}
	return "upnp:rootdevice"
}
