package ssdp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              报文构造测试
// ============================================================================

func TestBuildSearchRequest(t *testing.T) {
	req := string(buildSearchRequest("239.255.255.250:1900", "ssdp:rootdevice", 3))

	// 请求行与必需头
	assert.True(t, strings.HasPrefix(req, "M-SEARCH * HTTP/1.1\r\n"))
	assert.Contains(t, req, "HOST: 239.255.255.250:1900\r\n")
	assert.Contains(t, req, "MX: 3\r\n")
	assert.Contains(t, req, "ST: ssdp:rootdevice\r\n")
	assert.True(t, strings.HasSuffix(req, "\r\n\r\n"))

	// MAN 头必须带引号
	assert.Contains(t, req, "MAN: \"ssdp:discover\"\r\n")
}

// ============================================================================
//                              应答解析测试
// ============================================================================

func TestParseSearchResponse(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"CACHE-CONTROL: max-age=1800\r\n" +
		"EXT:\r\n" +
		"LOCATION: http://192.168.1.1:5000/rootDesc.xml\r\n" +
		"SERVER: MiniUPnPd/2.3.0 UPnP/1.1\r\n" +
		"ST: urn:schemas-upnp-org:device:InternetGatewayDevice:1\r\n" +
		"USN: uuid:abcd::urn:schemas-upnp-org:device:InternetGatewayDevice:1\r\n\r\n"

	c, err := parseSearchResponse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.1:5000/rootDesc.xml", c.Location.String())
	assert.Equal(t, "urn:schemas-upnp-org:device:InternetGatewayDevice:1", c.SearchTarget)
	assert.Equal(t, "uuid:abcd::urn:schemas-upnp-org:device:InternetGatewayDevice:1", c.USN)
	assert.Equal(t, 30*time.Minute, c.MaxAge)
	assert.Equal(t, "MiniUPnPd/2.3.0 UPnP/1.1", c.Server)
}

func TestParseSearchResponse_CaseInsensitiveHeaders(t *testing.T) {
	// 头部名不区分大小写
	raw := "HTTP/1.1 200 OK\r\n" +
		"location: http://192.168.1.1/desc.xml\r\n" +
		"usn: uuid:x\r\n\r\n"

	c, err := parseSearchResponse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.1/desc.xml", c.Location.String())
	assert.Equal(t, "uuid:x", c.USN)
}

func TestParseSearchResponse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"非 200 状态", "HTTP/1.1 404 Not Found\r\nLOCATION: http://x/d.xml\r\n\r\n"},
		{"不是 HTTP 应答", "NOTIFY * HTTP/1.1\r\nLOCATION: http://x/d.xml\r\n\r\n"},
		{"缺少 LOCATION", "HTTP/1.1 200 OK\r\nST: upnp:rootdevice\r\n\r\n"},
		{"LOCATION 无主机", "HTTP/1.1 200 OK\r\nLOCATION: /rootDesc.xml\r\n\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSearchResponse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseMaxAge(t *testing.T) {
	assert.Equal(t, 1800*time.Second, parseMaxAge("max-age=1800"))
	assert.Equal(t, 120*time.Second, parseMaxAge("no-cache, max-age=120"))
	assert.Equal(t, 60*time.Second, parseMaxAge("MAX-AGE=60"))

	// 缺失或畸形时返回 0
	assert.Equal(t, time.Duration(0), parseMaxAge(""))
	assert.Equal(t, time.Duration(0), parseMaxAge("no-cache"))
	assert.Equal(t, time.Duration(0), parseMaxAge("max-age=abc"))
	assert.Equal(t, time.Duration(0), parseMaxAge("max-age=-5"))
}

func TestCandidate_Key(t *testing.T) {
	a, err := parseSearchResponse([]byte(
		"HTTP/1.1 200 OK\r\nLOCATION: http://gw/d.xml\r\nUSN: uuid:1\r\n\r\n"))
	require.NoError(t, err)
	b, err := parseSearchResponse([]byte(
		"HTTP/1.1 200 OK\r\nLOCATION: http://gw/d.xml\r\nUSN: uuid:2\r\n\r\n"))
	require.NoError(t, err)

	// USN 不同则键不同，同一物理网关的不同服务通告不会互相吞掉
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), a.Key())
}
