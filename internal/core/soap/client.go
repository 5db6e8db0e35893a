package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// 控制响应的读取上限
const maxResponseSize = 1 << 20

// ============================================================================
//                              请求参数与响应
// ============================================================================

// Arg 一个有序的动作参数
//
// 参数顺序随切片保持；数值参数由调用方用 strconv 序列化，
// 不经过任何 locale 相关的格式化路径。
type Arg struct {
	Name  string
	Value string
}

// Response 成功响应的输出参数集合
type Response struct {
	values map[string]string
}

// Get 返回指定输出参数的值，缺失时返回空串
func (r *Response) Get(name string) string {
	return r.values[name]
}

// Lookup 返回指定输出参数的值与存在标记
func (r *Response) Lookup(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// ============================================================================
//                              Client
// ============================================================================

// Client SOAP 控制客户端
//
// 除注入的共享 HTTP 传输句柄外没有跨调用的可变状态，
// 可被多个并发调用、多台设备同时使用。
type Client struct {
	http *http.Client
}

// NewClient 创建控制客户端
//
// 传输句柄显式传入而非隐式全局，生命周期与并发语义由调用方掌控。
func NewClient(hc *http.Client) *Client {
	return &Client{http: hc}
}

// Invoke 执行一次动作调用
//
// 失败分类见包文档。故障检测先于成功路径解析。
func (c *Client) Invoke(ctx context.Context, controlURL *url.URL, serviceType, action string, args []Arg) (*Response, error) {
	body := buildEnvelope(serviceType, action, args)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", igdif.ErrTransport, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf("%q", serviceType+"#"+action))
	// 路由器的监听队列往往很浅，空闲连接会把后续调用挤掉
	req.Close = true

	logger.Debug("执行控制调用", "action", action, "controlURL", controlURL)

	resp, err := c.http.Do(req)
	if err != nil {
		// 取消与传输失败是不同的条件，不能混为一谈
		if ctx.Err() != nil {
			return nil, fmt.Errorf("igd: %s canceled: %w", action, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %v", igdif.ErrTransport, action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("igd: %s canceled: %w", action, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %v", igdif.ErrTransport, action, err)
	}

	// 故障响应通常伴随 HTTP 500，必须先于状态码检查解析响应体
	fault, response, parseErr := parseBody(respBody)
	if fault != nil {
		return nil, fault.ControlError(action)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", igdif.ErrMalformedResponse, action, parseErr)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: HTTP %d", igdif.ErrTransport, action, resp.StatusCode)
	}
	return response, nil
}

// ============================================================================
//                              信封构造
// ============================================================================

// buildEnvelope 构造固定结构的请求信封
//
// 参数按给定顺序序列化为以参数名命名的子元素。
func buildEnvelope(serviceType, action string, args []Arg) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"` +
		` s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	b.WriteString("<s:Body>")
	fmt.Fprintf(&b, `<u:%s xmlns:u=%q>`, action, serviceType)
	for _, arg := range args {
		fmt.Fprintf(&b, "<%s>", arg.Name)
		_ = xml.EscapeText(&b, []byte(arg.Value))
		fmt.Fprintf(&b, "</%s>", arg.Name)
	}
	fmt.Fprintf(&b, "</u:%s>", action)
	b.WriteString("</s:Body></s:Envelope>")
	return b.Bytes()
}

// ============================================================================
//                              响应解析
// ============================================================================

// parseBody 解析响应体
//
// 第一遍扫描故障：Body 下任何位置出现 Fault 元素都优先于成功解析；
// 第二遍收集叶子元素作为输出参数（同名取第一个）。
// 返回值三选一：故障、成功响应、解析错误。
func parseBody(data []byte) (*Fault, *Response, error) {
	if fault, err := scanFault(data); err != nil {
		return nil, nil, err
	} else if fault != nil {
		return fault, nil, nil
	}

	values, err := collectLeaves(data)
	if err != nil {
		return nil, nil, err
	}
	return nil, &Response{values: values}, nil
}

// scanFault 在整个文档中查找 Fault 元素
func scanFault(data []byte) (*Fault, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Fault" {
			continue
		}

		var decoded xmlFault
		if err := dec.DecodeElement(&decoded, &start); err != nil {
			return nil, err
		}
		return &Fault{
			FaultCode:   decoded.FaultCode,
			FaultString: decoded.FaultString,
			Code:        decoded.Detail.UPnPError.Code,
			Description: decoded.Detail.UPnPError.Description,
		}, nil
	}
}

// collectLeaves 收集文档中所有叶子元素的文本内容
//
// 输出参数是响应包装元素的直接子元素，按本地名索引即可覆盖
// 现实中各家固件的命名空间差异。
func collectLeaves(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	dec := xml.NewDecoder(bytes.NewReader(data))

	var stack []string
	var text strings.Builder
	hasChild := make(map[int]bool)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return values, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				hasChild[len(stack)-1] = true
			}
			stack = append(stack, t.Name.Local)
			hasChild[len(stack)-1] = false
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1]
			leaf := !hasChild[len(stack)-1]
			stack = stack[:len(stack)-1]
			if leaf {
				if _, dup := values[name]; !dup {
					values[name] = strings.TrimSpace(text.String())
				}
			}
			text.Reset()
		}
	}
}
