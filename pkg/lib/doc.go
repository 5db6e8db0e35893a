// Package lib 包含基础设施工具库
//
// 本目录包含与协议组件无关的通用工具库：
//
//   - log: 日志封装（基于 log/slog）
//
// # 与 pkg/ 其他目录的关系
//
//   - interfaces/: 组件公共接口与类型
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import "github.com/dep2p/go-igd/pkg/lib/log"
package lib
