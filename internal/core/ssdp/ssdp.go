package ssdp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// 多播发送的 TTL / 跳数限制，UPnP 规范建议值
const multicastHops = 2

// 单条 SSDP 应答的读缓冲大小
const readBufferSize = 2048

// ============================================================================
//                              Discoverer
// ============================================================================

// Discoverer SSDP 搜索器
//
// 每次 Search 使用独立的套接字与候选通道，彼此不共享状态，
// 可以并发发起多个地址族的搜索。
type Discoverer struct {
	targets []string
	addrV4  string
	addrV6  string

	// clk 驱动搜索窗口计时，测试中注入 mock 以免真实等待
	clk clock.Clock
}

// NewDiscoverer 创建 SSDP 搜索器
func NewDiscoverer(cfg *igdif.Config) *Discoverer {
	return &Discoverer{
		targets: cfg.SearchTargets,
		addrV4:  cfg.SearchAddrIPv4,
		addrV6:  cfg.SearchAddrIPv6,
		clk:     clock.New(),
	}
}

// Search 发起一次多播搜索，返回增量发出的候选通道
//
// 通道在窗口结束、调用方取消或套接字出错时关闭。候选按 (LOCATION, USN)
// 去重后立即发出，不等窗口结束，因此并行竞速多个地址族的调用方可以在
// 第一个应答到达时就拿到结果。没有任何候选是正常的空结果。
func (d *Discoverer) Search(ctx context.Context, family igdif.Family, window time.Duration) (<-chan Candidate, error) {
	dest, network, err := d.destination(family)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("ssdp: listen %s: %w", network, err)
	}

	if err := d.sendSearches(conn, family, dest, window); err != nil {
		conn.Close()
		return nil, err
	}

	ch := make(chan Candidate, 16)
	done := make(chan struct{})

	// 窗口计时：窗口结束或取消时关闭套接字，从而终止接收循环。
	// 套接字在每条退出路径上都由这里统一释放。
	timer := d.clk.Timer(window)
	go func() {
		defer timer.Stop()
		defer conn.Close()
		select {
		case <-timer.C:
		case <-ctx.Done():
		case <-done:
		}
	}()

	// 接收循环：候选通道的唯一写入方
	go func() {
		defer close(done)
		defer close(ch)
		d.receiveLoop(ctx, conn, ch)
	}()

	return ch, nil
}

// destination 返回地址族对应的搜索目的地址
func (d *Discoverer) destination(family igdif.Family) (*net.UDPAddr, string, error) {
	switch family {
	case igdif.FamilyIPv4:
		addr, err := net.ResolveUDPAddr("udp4", d.addrV4)
		if err != nil {
			return nil, "", fmt.Errorf("ssdp: resolve %s: %w", d.addrV4, err)
		}
		return addr, "udp4", nil
	case igdif.FamilyIPv6:
		addr, err := net.ResolveUDPAddr("udp6", d.addrV6)
		if err != nil {
			return nil, "", fmt.Errorf("ssdp: resolve %s: %w", d.addrV6, err)
		}
		return addr, "udp6", nil
	default:
		return nil, "", fmt.Errorf("ssdp: unknown address family %d", family)
	}
}

// sendSearches 向目的地址发送全部搜索目标的 M-SEARCH 报文
//
// 多播目的地址时逐个可用接口发送；测试替身使用的单播地址直接发送。
func (d *Discoverer) sendSearches(conn *net.UDPConn, family igdif.Family, dest *net.UDPAddr, window time.Duration) error {
	mx := int(window / time.Second)
	if mx < 1 {
		mx = 1
	}

	var requests [][]byte
	for _, target := range d.targets {
		requests = append(requests, buildSearchRequest(dest.String(), target, mx))
	}

	if !dest.IP.IsMulticast() {
		return sendDirect(conn, dest, requests)
	}

	switch family {
	case igdif.FamilyIPv4:
		return sendMulticastV4(conn, dest, requests)
	default:
		return sendMulticastV6(conn, dest, requests)
	}
}

// sendDirect 单播直发（测试替身路径）
func sendDirect(conn *net.UDPConn, dest *net.UDPAddr, requests [][]byte) error {
	var sent int
	for _, req := range requests {
		if _, err := conn.WriteToUDP(req, dest); err == nil {
			sent++
		}
	}
	if sent == 0 {
		return fmt.Errorf("ssdp: no search request sent to %s", dest)
	}
	return nil
}

// sendMulticastV4 在每个可用 IPv4 多播接口上发送搜索报文
func sendMulticastV4(conn *net.UDPConn, dest *net.UDPAddr, requests [][]byte) error {
	p := ipv4.NewPacketConn(conn)
	_ = p.SetMulticastTTL(multicastHops)

	var sent int
	for _, ifi := range multicastInterfaces() {
		ifi := ifi
		if err := p.SetMulticastInterface(&ifi); err != nil {
			continue
		}
		for _, req := range requests {
			if _, err := p.WriteTo(req, nil, dest); err == nil {
				sent++
			}
		}
	}
	if sent == 0 {
		// 没有任何接口发送成功时退回默认路由
		return sendDirect(conn, dest, requests)
	}
	return nil
}

// sendMulticastV6 在每个可用 IPv6 多播接口上发送搜索报文
func sendMulticastV6(conn *net.UDPConn, dest *net.UDPAddr, requests [][]byte) error {
	p := ipv6.NewPacketConn(conn)
	_ = p.SetMulticastHopLimit(multicastHops)

	var sent int
	for _, ifi := range multicastInterfaces() {
		ifi := ifi
		if err := p.SetMulticastInterface(&ifi); err != nil {
			continue
		}
		for _, req := range requests {
			if _, err := p.WriteTo(req, nil, dest); err == nil {
				sent++
			}
		}
	}
	if sent == 0 {
		return sendDirect(conn, dest, requests)
	}
	return nil
}

// multicastInterfaces 返回启用且支持多播的非回环接口
func multicastInterfaces() []net.Interface {
	all, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var out []net.Interface
	for _, ifi := range all {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		if ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		out = append(out, ifi)
	}
	return out
}

// receiveLoop 在发送套接字上收取单播应答，去重后发往候选通道
//
// 畸形或非 200 的应答静默丢弃。套接字被窗口协程关闭后 ReadFromUDP
// 返回错误，循环随之退出。
func (d *Discoverer) receiveLoop(ctx context.Context, conn *net.UDPConn, ch chan<- Candidate) {
	seen := make(map[string]struct{})
	buf := make([]byte, readBufferSize)

	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		candidate, err := parseSearchResponse(buf[:n])
		if err != nil {
			logger.Debug("丢弃无法解析的 SSDP 应答", "src", src, "err", err)
			continue
		}

		key := candidate.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		logger.Debug("发现网关候选",
			"location", candidate.Location,
			"usn", candidate.USN,
			"st", candidate.SearchTarget)

		select {
		case ch <- *candidate:
		case <-ctx.Done():
			return
		}
	}
}
