// Package interfaces 定义 go-igd 的公共接口
//
// 公共契约与实现分离（一个接口目录 = 一个实现目录）：
//
//   - igd/ - 网关接口、映射类型、错误与故障码、模块配置
//
// 实现位于 internal/core/，根包提供类型别名与便捷入口。
//
// # 设计原则
//
// 本包仅包含接口、类型与配置定义，不包含实现逻辑；
// 调用方依赖接口，实现通过根包或 fx 模块注入。
package interfaces
