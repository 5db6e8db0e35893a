package igd_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	igd "github.com/dep2p/go-igd"
	"github.com/dep2p/go-igd/igdtest"
)

// testOptions 把搜索指向替身的 SSDP 响应器
func testOptions(addr string) []igd.Option {
	return []igd.Option{
		igd.WithSearchAddrIPv4(addr),
		igd.WithIPv4(true),
		igd.WithIPv6(false),
		igd.WithSearchWindow(1 * time.Second),
	}
}

// ============================================================================
//                              发现测试
// ============================================================================

func TestDiscoverGateway(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	addr, err := srv.ServeSSDP()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gw, err := igd.DiscoverGateway(ctx, testOptions(addr)...)
	require.NoError(t, err)

	assert.Equal(t, "igdtest gateway", gw.FriendlyName())
	assert.Equal(t, "uuid:igdtest-0000", gw.UDN())
	assert.Equal(t, srv.DescriptorURL(), gw.Location())

	// 发现出的句柄直接可用
	ip, err := gw.ExternalIP(ctx)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ip.String())
}

func TestDiscoverGateway_NoResponder(t *testing.T) {
	// 指向无人应答的地址：窗口结束后报告没有网关
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = igd.DiscoverGateway(ctx, testOptions(conn.LocalAddr().String())...)
	assert.ErrorIs(t, err, igd.ErrNoGatewayFound)
}

func TestDiscoverGateway_UnresolvableCandidate(t *testing.T) {
	// 响应器通告一个无人监听的描述地址：候选解析失败，最终仍是没有网关
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		buf := make([]byte, 2048)
		for {
			n, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			_ = n
			reply := "HTTP/1.1 200 OK\r\n" +
				"LOCATION: http://127.0.0.1:1/rootDesc.xml\r\n" +
				"ST: upnp:rootdevice\r\n" +
				"USN: uuid:dead\r\n\r\n"
			_, _ = conn.WriteToUDP([]byte(reply), src)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = igd.DiscoverGateway(ctx, testOptions(conn.LocalAddr().String())...)
	require.Error(t, err)
	assert.ErrorIs(t, err, igd.ErrNoGatewayFound)
}

func TestDiscoverGateways(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	addr, err := srv.ServeSSDP()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gws, err := igd.DiscoverGateways(ctx, testOptions(addr)...)
	require.NoError(t, err)

	// 替身对每个 ST 都应答，UDN 去重后只剩一台
	require.Len(t, gws, 1)
	assert.Equal(t, "uuid:igdtest-0000", gws[0].UDN())
}

func TestDiscoverGateways_EmptyIsNotError(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gws, err := igd.DiscoverGateways(ctx, testOptions(conn.LocalAddr().String())...)
	require.NoError(t, err)
	assert.Empty(t, gws)
}

// ============================================================================
//                              直连加载测试
// ============================================================================

func TestLoad(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()

	ctx := context.Background()
	gw, err := igd.Load(ctx, srv.DescriptorURL())
	require.NoError(t, err)
	assert.Equal(t, "uuid:igdtest-0000", gw.UDN())

	err = gw.CreateMapping(ctx, igd.Mapping{
		Protocol:       igd.TCP,
		ExternalPort:   9001,
		InternalPort:   9001,
		InternalClient: "192.168.1.10",
		Description:    "load-test",
		Enabled:        true,
	})
	require.NoError(t, err)

	m, err := gw.SpecificMapping(ctx, igd.TCP, 9001)
	require.NoError(t, err)
	assert.Equal(t, "load-test", m.Description)
}

func TestLoad_BadLocation(t *testing.T) {
	_, err := igd.Load(context.Background(), "not a url")
	assert.ErrorIs(t, err, igd.ErrDescriptorUnreachable)

	_, err = igd.Load(context.Background(), "http://127.0.0.1:1/rootDesc.xml")
	assert.ErrorIs(t, err, igd.ErrDescriptorUnreachable)
}

// ============================================================================
//                              构造测试
// ============================================================================

func TestNewFinder_InvalidConfig(t *testing.T) {
	_, err := igd.NewFinder(igd.WithSearchWindow(0))
	assert.Error(t, err)

	_, err = igd.NewFinder(igd.WithIPv4(false), igd.WithIPv6(false))
	assert.Error(t, err)

	_, err = igd.NewFinder(igd.WithSearchTargets())
	assert.Error(t, err)
}

// ============================================================================
//                              端到端流程
// ============================================================================

func TestEndToEnd_MappingLifecycle(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	addr, err := srv.ServeSSDP()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	gw, err := igd.DiscoverGateway(ctx, testOptions(addr)...)
	require.NoError(t, err)

	// 创建 → 枚举 → 针对性查询 → 删除 → 再删除（幂等）
	require.NoError(t, gw.CreateMapping(ctx, igd.Mapping{
		Protocol:       igd.UDP,
		ExternalPort:   6881,
		InternalPort:   6881,
		InternalClient: "192.168.1.42",
		Description:    "bt-dht",
		Enabled:        true,
		LeaseDuration:  7200,
	}))

	mappings, err := gw.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "bt-dht", mappings[0].Description)

	m, err := gw.SpecificMapping(ctx, igd.UDP, 6881)
	require.NoError(t, err)
	assert.Equal(t, uint16(6881), m.InternalPort)

	require.NoError(t, gw.DeleteMapping(ctx, igd.UDP, 6881))
	require.NoError(t, gw.DeleteMapping(ctx, igd.UDP, 6881))

	mappings, err = gw.ListMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}
