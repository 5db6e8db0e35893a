// Package ssdp 实现 SSDP 多播发现
//
// # 模块概述
//
// ssdp 负责在本地网络上搜索 UPnP 网关候选：
//   - 发送 M-SEARCH 多播搜索报文（IPv4 239.255.255.250:1900 / IPv6 [ff02::c]:1900）
//   - 在发送套接字上监听单播应答直到窗口结束或调用方取消
//   - 按 (LOCATION, USN) 去重并增量发出候选
//
// # 协议行为
//
// 应答按"HTTP 状态行 + 头部块"解析，仅接受 200 OK；头部匹配不区分大小写。
// 畸形或非 200 的应答静默丢弃（仅 Debug 日志）——协议在异构路由器固件
// 之间本来就是尽力而为的。窗口内没有候选属于正常的空结果，不是错误。
//
// # 并发模型
//
// 接收循环是候选通道的唯一写入方；通道带缓冲，调用方可以把多个地址族的
// 搜索扇出合并。套接字在成功、超时、取消、出错的每条退出路径上都会释放。
//
// 架构层：Core Layer
package ssdp

import (
	"github.com/dep2p/go-igd/pkg/lib/log"
)

var logger = log.Logger("core/ssdp")
