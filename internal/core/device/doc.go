// Package device 实现 UPnP 设备描述的获取与解析
//
// # 模块概述
//
// device 把 SSDP 发现的候选 LOCATION 变成结构化的设备描述：
//   - HTTP GET 设备描述 XML
//   - 深度优先遍历嵌套的 device/serviceList 树，按文档序收集全部 service
//   - 相对 controlURL / SCPDURL 依次按 URLBase、LOCATION 解析为绝对地址
//   - 选取文档序第一个可识别的 WAN 连接服务（确定、稳定）
//
// 设备树是严格的树结构（不会有回边），用显式栈遍历自有的递归结构。
// 描述一经解析即不可变，由持有它的网关句柄缓存整个进程生命周期；
// 重新发现是调用方显式发起的动作，没有后台刷新。
//
// SCPD 能力文档可以按需获取用于自省，但五个控制操作都不依赖它。
//
// 架构层：Core Layer
package device

import (
	"github.com/dep2p/go-igd/pkg/lib/log"
)

var logger = log.Logger("core/device")
