package ssdp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
//                              Candidate
// ============================================================================

// Candidate SSDP 搜索发现的网关候选
//
// 身份键是 (Location, USN)；同一个搜索窗口内不会重复发出相同键的候选。
// 候选是瞬态数据，只在发现阶段存在，由描述解析消费。
type Candidate struct {
	// Location 设备描述文档的 URL
	Location *url.URL

	// SearchTarget 应答中的 ST 头
	SearchTarget string

	// USN 唯一服务名
	USN string

	// MaxAge CACHE-CONTROL 声明的通告有效期
	MaxAge time.Duration

	// Server 设备自述的服务器标识（如 MiniUPnPd/2.x.x）
	Server string
}

// Key 返回候选的去重键
func (c *Candidate) Key() string {
	return c.Location.String() + "|" + c.USN
}

// ============================================================================
//                              报文构造与解析
// ============================================================================

// buildSearchRequest 构造 M-SEARCH 搜索报文
//
// MAN 头必须是带引号的 "ssdp:discover"，MX 不超过搜索窗口（秒）。
func buildSearchRequest(host, target string, mx int) []byte {
	var b bytes.Buffer
	b.WriteString("M-SEARCH * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "HOST: %s\r\n", host)
	b.WriteString("MAN: \"ssdp:discover\"\r\n")
	fmt.Fprintf(&b, "MX: %d\r\n", mx)
	fmt.Fprintf(&b, "ST: %s\r\n", target)
	b.WriteString("\r\n")
	return b.Bytes()
}

// 解析失败原因（内部使用，应答丢弃时仅记录 Debug 日志）
var (
	errNotOK      = errors.New("ssdp: response is not 200 OK")
	errNoLocation = errors.New("ssdp: response has no LOCATION header")
)

// parseSearchResponse 解析一条 M-SEARCH 单播应答
//
// 应答是 HTTP 状态行加头部块；头部名不区分大小写。
// 只接受 "200 OK"，缺少 LOCATION 的应答同样丢弃。
func parseSearchResponse(data []byte) (*Candidate, error) {
	rd := bufio.NewReader(bytes.NewReader(data))

	statusLine, err := rd.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("ssdp: read status line: %w", err)
	}
	fields := strings.SplitN(strings.TrimSpace(statusLine), " ", 3)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") || fields[1] != "200" {
		return nil, errNotOK
	}

	hdr, err := textproto.NewReader(rd).ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("ssdp: read headers: %w", err)
	}

	rawLocation := hdr.Get("Location")
	if rawLocation == "" {
		return nil, errNoLocation
	}
	location, err := url.Parse(rawLocation)
	if err != nil || location.Host == "" {
		return nil, fmt.Errorf("ssdp: bad LOCATION %q", rawLocation)
	}

	return &Candidate{
		Location:     location,
		SearchTarget: hdr.Get("St"),
		USN:          hdr.Get("Usn"),
		MaxAge:       parseMaxAge(hdr.Get("Cache-Control")),
		Server:       hdr.Get("Server"),
	}, nil
}

// parseMaxAge 从 CACHE-CONTROL 头提取 max-age
//
// 格式形如 "max-age=1800"；缺失或畸形时返回 0。
func parseMaxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		value, ok := strings.CutPrefix(strings.ToLower(directive), "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	return 0
}
