package gateway

import (
	"errors"

	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// 故障码到调用方错误的纯映射。
// 已知的吸收场景（714 之于删除、713 之于枚举）在这里判定，
// 由各操作在自己的路径上消化；其余错误码保持原值传递。

// isControlFault 判断 err 是否携带指定错误码的控制故障
func isControlFault(err error, code int) bool {
	var ce *igdif.ControlError
	return errors.As(err, &ce) && ce.Code == code
}

// absorbDeleteFault 删除路径的幂等吸收：714 视为成功
func absorbDeleteFault(err error) error {
	if isControlFault(err, igdif.FaultNoSuchEntryInArray) {
		return nil
	}
	return err
}

// isEndOfTable 枚举路径的终止判定：713 是表结束信号
func isEndOfTable(err error) bool {
	return isControlFault(err, igdif.FaultSpecifiedArrayIndexInvalid)
}

// translateLookupFault 针对性查询的未命中判定
//
// 不同固件对"条目不存在"既有返回 714 的也有返回 713 的，
// 两者在针对性查询上都映射为 ErrMappingNotFound。
// 注意这与删除路径的吸收是两回事：这里未命中是错误，删除时不是。
func translateLookupFault(err error) error {
	if isControlFault(err, igdif.FaultNoSuchEntryInArray) ||
		isControlFault(err, igdif.FaultSpecifiedArrayIndexInvalid) {
		return igdif.ErrMappingNotFound
	}
	return err
}
