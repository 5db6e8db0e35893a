// Package igd 提供 UPnP IGD 网关发现与端口映射控制
//
// go-igd 是一个发现-控制引擎：SSDP 多播搜索、设备描述解析、
// SOAP 控制调用、故障码分类，以及端口映射的五个操作
// （查外部 IP、创建 / 删除 / 枚举 / 针对性查询映射）。
// 供需要入站连通性的 P2P、联机游戏与自托管应用使用，
// 免去手工配置路由器。
//
// # 快速开始
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	gw, err := igd.DiscoverGateway(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ip, err := gw.ExternalIP(ctx)
//	fmt.Println("external IP:", ip)
//
//	err = gw.CreateMapping(ctx, igd.Mapping{
//	    Protocol:     igd.TCP,
//	    ExternalPort: 9001,
//	    InternalPort: 9001,
//	    Description:  "my-app",
//	    Enabled:      true,
//	})
//
// 已知描述地址时可以跳过发现直接加载：
//
//	gw, err := igd.Load(ctx, "http://192.168.1.1:5000/rootDesc.xml")
//
// # 错误处理
//
// 常见错误：
//   - ErrNoGatewayFound: 搜索窗口内没有可用网关（仅单网关便捷入口返回）
//   - ErrNoServiceFound: 设备树中没有可识别的 WAN 连接服务
//   - ErrDescriptorUnreachable: 描述文档获取或解析失败
//   - ErrTransport: 连接 / HTTP 层失败（本层不重试）
//   - ErrMalformedResponse: 响应体不是合法 XML
//   - ErrMappingNotFound: 针对性查询未命中
//
// 错误类型：
//   - *ControlError: 协议层拒绝，错误码与描述逐字保留
//
// 幂等与终止策略：删除不存在的映射不是错误（714 被吸收）；
// 枚举把 713 当作表结束信号而非错误。吸收仅限这两处。
//
// # 并发
//
// 所有操作都接受 context，取消会中止在途请求并上抛独立的取消条件。
// Gateway 句柄除不可变描述外不持有状态，可以并发、重复调用；
// 共享的 HTTP 传输句柄通过 WithHTTPClient 显式注入。
//
// # 架构设计
//
// 模块结构：
//
//	Finder (发现入口)
//	├── ssdp.Discoverer  - M-SEARCH 多播搜索，增量去重候选流
//	├── device.Resolver  - 描述获取与设备树解析
//	└── gateway.Device   - 端口映射服务门面
//	    └── soap.Client  - 单次动作调用
//
// # 协议标准
//
//   - UPnP Device Architecture 1.1 (SSDP / 设备描述 / SOAP 控制)
//   - UPnP-gw-WANIPConnection v1/v2 服务
package igd

import (
	"github.com/dep2p/go-igd/pkg/lib/log"
)

var logger = log.Logger("igd")
