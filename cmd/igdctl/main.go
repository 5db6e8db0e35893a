// Package main 提供 igdctl 命令行入口
//
// igdctl 是网关发现与端口映射的诊断工具：
//
//	igdctl discover                  # 发现局域网内的全部网关
//	igdctl external-ip               # 查询外部 IP
//	igdctl list                      # 枚举映射表
//	igdctl add tcp 9001 9001 my-app  # 创建映射
//	igdctl get tcp 9001              # 查询指定映射
//	igdctl delete tcp 9001           # 删除映射
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	igd "github.com/dep2p/go-igd"
	"github.com/dep2p/go-igd/pkg/lib/log"
)

var logger = log.Logger("igd/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	window   = flag.Duration("window", 3*time.Second, "SSDP 搜索窗口")
	timeout  = flag.Duration("timeout", 30*time.Second, "整体操作超时")
	location = flag.String("location", "", "已知的设备描述 URL（跳过发现）")
	ipv6     = flag.Bool("ipv6", false, "同时在 IPv6 链路本地多播组上搜索")
	lease    = flag.Uint("lease", 0, "add 命令的租期（秒，0 = 无限期）")
	verbose  = flag.Bool("verbose", false, "输出调试日志")
	showHelp = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showHelp || flag.NArg() == 0 {
		printHelp()
		return nil
	}

	if *verbose {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelWarn)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	// discover 不需要绑定单个网关
	if command == "discover" {
		return cmdDiscover(ctx)
	}

	gw, err := openGateway(ctx)
	if err != nil {
		return err
	}
	logger.Debug("网关就绪", "name", gw.FriendlyName(), "location", gw.Location())

	switch command {
	case "external-ip":
		return cmdExternalIP(ctx, gw)
	case "list":
		return cmdList(ctx, gw)
	case "add":
		return cmdAdd(ctx, gw, args)
	case "delete":
		return cmdDelete(ctx, gw, args)
	case "get":
		return cmdGet(ctx, gw, args)
	default:
		return fmt.Errorf("未知命令 %q（igdctl -help 查看用法）", command)
	}
}

// openGateway 按参数发现或直连网关
func openGateway(ctx context.Context) (igd.Gateway, error) {
	opts := []igd.Option{
		igd.WithSearchWindow(*window),
		igd.WithIPv6(*ipv6),
	}
	if *location != "" {
		return igd.Load(ctx, *location, opts...)
	}
	return igd.DiscoverGateway(ctx, opts...)
}

// ═══════════════════════════════════════════════════════════════════════════
// 命令实现
// ═══════════════════════════════════════════════════════════════════════════

func cmdDiscover(ctx context.Context) error {
	gws, err := igd.DiscoverGateways(ctx,
		igd.WithSearchWindow(*window),
		igd.WithIPv6(*ipv6))
	if err != nil {
		return err
	}
	if len(gws) == 0 {
		fmt.Println("搜索窗口内没有发现网关")
		return nil
	}
	for _, gw := range gws {
		fmt.Printf("%s\n  UDN:      %s\n  Location: %s\n  Service:  %s\n",
			gw.FriendlyName(), gw.UDN(), gw.Location(), gw.ServiceType())
	}
	return nil
}

func cmdExternalIP(ctx context.Context, gw igd.Gateway) error {
	ip, err := gw.ExternalIP(ctx)
	if err != nil {
		return err
	}
	fmt.Println(ip)
	return nil
}

func cmdList(ctx context.Context, gw igd.Gateway) error {
	mappings, err := gw.ListMappings(ctx)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		fmt.Println("映射表为空")
		return nil
	}
	fmt.Printf("%-5s %-8s %-8s %-16s %-8s %-8s %s\n",
		"PROTO", "EXT", "INT", "CLIENT", "ENABLED", "LEASE", "DESCRIPTION")
	for _, m := range mappings {
		fmt.Printf("%-5s %-8d %-8d %-16s %-8t %-8d %s\n",
			m.Protocol, m.ExternalPort, m.InternalPort,
			m.InternalClient, m.Enabled, m.LeaseDuration, m.Description)
	}
	return nil
}

func cmdAdd(ctx context.Context, gw igd.Gateway, args []string) error {
	if len(args) < 3 {
		return errors.New("用法: igdctl add <tcp|udp> <外部端口> <内部端口> [描述]")
	}
	proto, err := parseProtocol(args[0])
	if err != nil {
		return err
	}
	extPort, err := parsePort(args[1])
	if err != nil {
		return err
	}
	intPort, err := parsePort(args[2])
	if err != nil {
		return err
	}
	description := "igdctl"
	if len(args) > 3 {
		description = args[3]
	}

	err = gw.CreateMapping(ctx, igd.Mapping{
		Protocol:      proto,
		ExternalPort:  extPort,
		InternalPort:  intPort,
		Description:   description,
		Enabled:       true,
		LeaseDuration: uint32(*lease),
	})
	if err != nil {
		return err
	}
	fmt.Printf("已创建 %s %d -> %d\n", proto, extPort, intPort)
	return nil
}

func cmdDelete(ctx context.Context, gw igd.Gateway, args []string) error {
	proto, extPort, err := parseKey(args, "delete")
	if err != nil {
		return err
	}
	if err := gw.DeleteMapping(ctx, proto, extPort); err != nil {
		return err
	}
	fmt.Printf("已删除 %s %d\n", proto, extPort)
	return nil
}

func cmdGet(ctx context.Context, gw igd.Gateway, args []string) error {
	proto, extPort, err := parseKey(args, "get")
	if err != nil {
		return err
	}
	m, err := gw.SpecificMapping(ctx, proto, extPort)
	if err != nil {
		if errors.Is(err, igd.ErrMappingNotFound) {
			fmt.Printf("%s %d 没有对应映射\n", proto, extPort)
			return nil
		}
		return err
	}
	fmt.Printf("%s %d -> %s:%d enabled=%t lease=%d %q\n",
		m.Protocol, m.ExternalPort, m.InternalClient, m.InternalPort,
		m.Enabled, m.LeaseDuration, m.Description)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 参数解析
// ═══════════════════════════════════════════════════════════════════════════

func parseKey(args []string, command string) (igd.Protocol, uint16, error) {
	if len(args) < 2 {
		return "", 0, fmt.Errorf("用法: igdctl %s <tcp|udp> <外部端口>", command)
	}
	proto, err := parseProtocol(args[0])
	if err != nil {
		return "", 0, err
	}
	port, err := parsePort(args[1])
	if err != nil {
		return "", 0, err
	}
	return proto, port, nil
}

func parseProtocol(raw string) (igd.Protocol, error) {
	proto := igd.Protocol(strings.ToUpper(raw))
	if !proto.Valid() {
		return "", fmt.Errorf("协议必须是 tcp 或 udp，得到 %q", raw)
	}
	return proto, nil
}

func parsePort(raw string) (uint16, error) {
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("端口无效 %q: %w", raw, err)
	}
	return uint16(v), nil
}

func printHelp() {
	fmt.Println(`igdctl - UPnP IGD 网关诊断工具

用法:
  igdctl [参数] <命令> [命令参数]

命令:
  discover                          发现局域网内的全部网关
  external-ip                       查询网关外部 IP
  list                              枚举端口映射表
  add <tcp|udp> <外部端口> <内部端口> [描述]
                                    创建端口映射
  get <tcp|udp> <外部端口>          查询指定映射
  delete <tcp|udp> <外部端口>       删除映射（幂等）

参数:`)
	flag.PrintDefaults()
}
