package igd

import (
	"context"

	"go.uber.org/fx"

	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 配置（可选，缺省使用 DefaultConfig）
	Config *igdif.Config `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Finder 网关发现入口
	Finder *Finder `name:"igd_finder"`
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	config := igdif.DefaultConfig()
	if input.Config != nil {
		config = input.Config
	}

	finder, err := NewFinderFromConfig(config)
	if err != nil {
		return ModuleOutput{}, err
	}

	return ModuleOutput{Finder: finder}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("igd",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Finder *Finder `name:"igd_finder"`
}

// registerLifecycle 注册生命周期
//
// Finder 无后台资源，钩子只记录启停日志，保持与其他模块一致的可观测性。
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("IGD 模块启动",
				"window", input.Finder.cfg.SearchWindow,
				"ipv4", input.Finder.cfg.EnableIPv4,
				"ipv6", input.Finder.cfg.EnableIPv6)
			return nil
		},
		OnStop: func(_ context.Context) error {
			logger.Info("IGD 模块停止")
			return nil
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

// 模块元信息常量
const (
	Version     = "1.0.0"
	Name        = "igd"
	Description = "UPnP IGD 网关发现与端口映射模块，提供 SSDP 搜索、描述解析与 SOAP 控制能力"
)
