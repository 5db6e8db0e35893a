package igd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-igd/internal/core/device"
	"github.com/dep2p/go-igd/internal/core/gateway"
	"github.com/dep2p/go-igd/internal/core/soap"
	"github.com/dep2p/go-igd/internal/core/ssdp"
	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Finder
// ════════════════════════════════════════════════════════════════════════════

// Finder 网关发现入口
//
// 持有配置与共享的 HTTP 传输句柄；句柄被描述解析与全部控制调用复用，
// 并发安全由 http.Client 保证。Finder 自身无可变状态，可并发使用。
type Finder struct {
	cfg      *igdif.Config
	disco    *ssdp.Discoverer
	resolver *device.Resolver
	soap     *soap.Client
}

// NewFinder 按选项创建发现入口
func NewFinder(opts ...Option) (*Finder, error) {
	cfg := igdif.DefaultConfig()
	cfg.ApplyOptions(opts...)
	return NewFinderFromConfig(cfg)
}

// NewFinderFromConfig 从现成配置创建发现入口
func NewFinderFromConfig(cfg *igdif.Config) (*Finder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Finder{
		cfg:      cfg,
		disco:    ssdp.NewDiscoverer(cfg),
		resolver: device.NewResolver(hc),
		soap:     soap.NewClient(hc),
	}, nil
}

// DiscoverGateway 返回第一个可用网关
//
// 并行竞速启用的地址族，候选一到达就尝试解析，第一个解析成功的
// 网关立即返回并取消其余搜索。窗口内没有可用网关返回
// ErrNoGatewayFound（解析失败的细节附在错误上供诊断）。
func (f *Finder) DiscoverGateway(ctx context.Context) (Gateway, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	candidates := f.search(ctx)

	var resolveErrs error
	for cand := range candidates {
		gw, err := f.fromCandidate(ctx, &cand)
		if err != nil {
			logger.Debug("候选解析失败", "location", cand.Location, "err", err)
			resolveErrs = multierr.Append(resolveErrs, err)
			continue
		}
		return gw, nil
	}

	if ctx.Err() != nil && resolveErrs == nil {
		return nil, ctx.Err()
	}
	if resolveErrs != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGatewayFound, resolveErrs)
	}
	return nil, ErrNoGatewayFound
}

// DiscoverGateways 返回窗口内发现的全部网关
//
// 解析失败的候选被丢弃；没有任何网关是正常的空结果，不是错误。
// 同一台物理网关跨地址族重复应答时按 UDN 去重。
func (f *Finder) DiscoverGateways(ctx context.Context) ([]Gateway, error) {
	candidates := f.search(ctx)

	var gateways []Gateway
	seen := make(map[string]struct{})
	for cand := range candidates {
		gw, err := f.fromCandidate(ctx, &cand)
		if err != nil {
			logger.Debug("候选解析失败", "location", cand.Location, "err", err)
			continue
		}
		if _, dup := seen[gw.UDN()]; dup {
			continue
		}
		seen[gw.UDN()] = struct{}{}
		gateways = append(gateways, gw)
	}

	if ctx.Err() != nil && len(gateways) == 0 {
		return nil, ctx.Err()
	}
	return gateways, nil
}

// Load 从已知描述地址直接构造网关，跳过发现
//
// 重新发现是调用方显式发起的动作；拿到过 Location 的调用方
// 可以用它直连网关。
func (f *Finder) Load(ctx context.Context, location string) (Gateway, error) {
	parsed, err := url.Parse(location)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("%w: bad location %q", ErrDescriptorUnreachable, location)
	}
	desc, err := f.resolver.Resolve(ctx, parsed)
	if err != nil {
		return nil, err
	}
	return gateway.New(desc, f.soap)
}

// search 合并启用地址族的候选流
//
// 每个地址族的搜索是独立的套接字与接收循环；转发进同一条输出通道，
// 跨地址族按 (LOCATION, USN) 再去重一次。输出通道在全部搜索结束后关闭。
func (f *Finder) search(ctx context.Context) <-chan ssdp.Candidate {
	out := make(chan ssdp.Candidate, 16)

	var families []igdif.Family
	if f.cfg.EnableIPv4 {
		families = append(families, igdif.FamilyIPv4)
	}
	if f.cfg.EnableIPv6 {
		families = append(families, igdif.FamilyIPv6)
	}

	var mu sync.Mutex
	seen := make(map[string]struct{})

	g := new(errgroup.Group)
	for _, family := range families {
		family := family
		g.Go(func() error {
			ch, err := f.disco.Search(ctx, family, f.cfg.SearchWindow)
			if err != nil {
				// 某个地址族不可用不影响其余地址族
				logger.Debug("地址族搜索失败", "family", family, "err", err)
				return nil
			}
			for cand := range ch {
				mu.Lock()
				_, dup := seen[cand.Key()]
				if !dup {
					seen[cand.Key()] = struct{}{}
				}
				mu.Unlock()
				if dup {
					continue
				}
				select {
				case out <- cand:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(out)
	}()
	return out
}

// fromCandidate 把候选解析为网关句柄
func (f *Finder) fromCandidate(ctx context.Context, cand *ssdp.Candidate) (Gateway, error) {
	desc, err := f.resolver.Resolve(ctx, cand.Location)
	if err != nil {
		return nil, err
	}
	return gateway.New(desc, f.soap)
}

// ════════════════════════════════════════════════════════════════════════════
//                              包级便捷入口
// ════════════════════════════════════════════════════════════════════════════

// DiscoverGateway 用默认配置返回第一个可用网关
func DiscoverGateway(ctx context.Context, opts ...Option) (Gateway, error) {
	f, err := NewFinder(opts...)
	if err != nil {
		return nil, err
	}
	return f.DiscoverGateway(ctx)
}

// DiscoverGateways 用默认配置返回窗口内发现的全部网关
func DiscoverGateways(ctx context.Context, opts ...Option) ([]Gateway, error) {
	f, err := NewFinder(opts...)
	if err != nil {
		return nil, err
	}
	return f.DiscoverGateways(ctx)
}

// Load 用默认配置从已知描述地址构造网关
func Load(ctx context.Context, location string, opts ...Option) (Gateway, error) {
	f, err := NewFinder(opts...)
	if err != nil {
		return nil, err
	}
	return f.Load(ctx, location)
}
