// Package gateway 实现端口映射服务与网关设备门面
//
// # 模块概述
//
// gateway 在 SOAP 控制客户端之上组合出五个端口映射操作：
//   - ExternalIP: GetExternalIPAddress
//   - CreateMapping: AddPortMapping
//   - DeleteMapping: DeletePortMapping（幂等，714 被吸收）
//   - ListMappings: GetGenericPortMappingEntry 递增索引枚举（713 作为表结束信号）
//   - SpecificMapping: GetSpecificPortMappingEntry（不存在返回 ErrMappingNotFound）
//
// # 故障吸收策略
//
// 线协议没有显式的"列表结束"响应，只有一个顶替它的错误码，
// 因此枚举把 713 (SpecifiedArrayIndexInvalid) 当作正常终止；
// 删除把 714 (NoSuchEntryInArray) 当作成功——删除不存在的映射
// 对调用方不是错误，这是可复现的既定策略而非实现巧合。
// 吸收仅限这两处，其余错误码一律原样上抛，不猜测未记录的语义。
//
// Device 门面把一个不可变的设备描述与绑定其控制端点的服务组合起来，
// 除描述外不持有任何状态，可以并发、重复调用。
//
// 架构层：Core Layer
package gateway

import (
	"github.com/dep2p/go-igd/pkg/lib/log"
)

var logger = log.Logger("core/gateway")
