// Package soap 实现 UPnP 控制点的 SOAP 动作调用
//
// # 模块概述
//
// soap 负责单次远程动作调用：构造请求信封、发送、解析响应或故障。
//   - 请求是对 controlURL 的 HTTP POST，SOAPACTION 头为 "<serviceType>#<actionName>"
//   - 信封固定为 s:Envelope/s:Body/u:ActionName，参数按序作为子元素
//   - 连接使用 close 语义，避免在监听队列很浅的路由器上积压空闲连接
//   - 任何响应都先做故障检测再做成功路径解析：Body 下出现 Fault 元素
//     即视为故障，优先于按预期响应结构匹配
//
// 数值参数一律用 strconv 序列化，与宿主 locale 无关
// （小数点固定为句点，无千位分隔符）。
//
// # 错误分类
//
//   - ErrTransport: 连接 / HTTP 层失败，本层不重试
//   - ErrMalformedResponse: 响应体不是合法 XML
//   - *ControlError: 合法 SOAP 故障，错误码与描述逐字保留
//   - context 取消原样上抛，永远不会折叠进上述任何一类
//
// 架构层：Core Layer
package soap

import (
	"github.com/dep2p/go-igd/pkg/lib/log"
)

var logger = log.Logger("core/soap")
