package gateway

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-igd/igdtest"
	"github.com/dep2p/go-igd/internal/core/device"
	"github.com/dep2p/go-igd/internal/core/soap"
	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// newTestDevice 解析替身描述并构造网关门面
func newTestDevice(t *testing.T, srv *igdtest.Server) *Device {
	t.Helper()
	location, err := url.Parse(srv.DescriptorURL())
	require.NoError(t, err)

	desc, err := device.NewResolver(http.DefaultClient).Resolve(context.Background(), location)
	require.NoError(t, err)

	dev, err := New(desc, soap.NewClient(http.DefaultClient))
	require.NoError(t, err)
	return dev
}

// ============================================================================
//                              门面测试
// ============================================================================

func TestDevice_Identity(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)

	assert.Equal(t, "igdtest gateway", dev.FriendlyName())
	assert.Equal(t, "uuid:igdtest-0000", dev.UDN())
	assert.Equal(t, srv.DescriptorURL(), dev.Location())
	assert.Equal(t, "urn:schemas-upnp-org:service:WANIPConnection:1", dev.ServiceType())
}

func TestDevice_ExternalIP(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)

	ip, err := dev.ExternalIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ip.String())
}

func TestDevice_ExternalIP_BadAddress(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	srv.Override(igdtest.ActionGetExternalIPAddress, func(args igdtest.Values) (igdtest.Values, *igdtest.Fault) {
		return igdtest.Values{"NewExternalIPAddress": "not-an-ip"}, nil
	})
	dev := newTestDevice(t, srv)

	_, err := dev.ExternalIP(context.Background())
	assert.ErrorIs(t, err, igdif.ErrMalformedResponse)
}

// ============================================================================
//                              创建与枚举
// ============================================================================

func TestDevice_CreateAndList(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)
	ctx := context.Background()

	err := dev.CreateMapping(ctx, igdif.Mapping{
		Protocol:       igdif.TCP,
		ExternalPort:   9001,
		InternalPort:   9001,
		InternalClient: "192.168.1.10",
		Description:    "app-tcp",
		Enabled:        true,
		LeaseDuration:  3600,
	})
	require.NoError(t, err)

	err = dev.CreateMapping(ctx, igdif.Mapping{
		Protocol:       igdif.UDP,
		ExternalPort:   9001,
		InternalPort:   9002,
		InternalClient: "192.168.1.11",
		Description:    "app-udp",
		Enabled:        false,
	})
	require.NoError(t, err)

	mappings, err := dev.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	// 枚举顺序即表序，字段完整往返
	assert.Equal(t, igdif.TCP, mappings[0].Protocol)
	assert.Equal(t, uint16(9001), mappings[0].ExternalPort)
	assert.Equal(t, uint16(9001), mappings[0].InternalPort)
	assert.Equal(t, "192.168.1.10", mappings[0].InternalClient)
	assert.Equal(t, "app-tcp", mappings[0].Description)
	assert.True(t, mappings[0].Enabled)
	assert.Equal(t, uint32(3600), mappings[0].LeaseDuration)

	assert.Equal(t, igdif.UDP, mappings[1].Protocol)
	assert.Equal(t, uint16(9002), mappings[1].InternalPort)
	assert.False(t, mappings[1].Enabled)
	assert.Equal(t, uint32(0), mappings[1].LeaseDuration)
}

func TestDevice_CreateMapping_Conflict(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)
	ctx := context.Background()

	m := igdif.Mapping{
		Protocol:       igdif.TCP,
		ExternalPort:   8080,
		InternalPort:   8080,
		InternalClient: "192.168.1.10",
		Enabled:        true,
	}
	require.NoError(t, dev.CreateMapping(ctx, m))

	// 同 (协议, 外部端口) 再次创建：718 原样上抛
	err := dev.CreateMapping(ctx, m)
	var ctrlErr *igdif.ControlError
	require.ErrorAs(t, err, &ctrlErr)
	assert.Equal(t, igdif.FaultConflictInMappingEntry, ctrlErr.Code)
}

func TestDevice_CreateMapping_FillsInternalClient(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)
	ctx := context.Background()

	// InternalClient 留空时自动填充本机在网关子网上的地址
	err := dev.CreateMapping(ctx, igdif.Mapping{
		Protocol:     igdif.TCP,
		ExternalPort: 7000,
		InternalPort: 7000,
		Enabled:      true,
	})
	require.NoError(t, err)

	mappings := srv.Mappings()
	require.Len(t, mappings, 1)
	assert.NotEmpty(t, mappings[0].InternalClient)
}

func TestDevice_CreateMapping_InvalidProtocol(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)

	err := dev.CreateMapping(context.Background(), igdif.Mapping{
		Protocol:       igdif.Protocol("ICMP"),
		ExternalPort:   1,
		InternalPort:   1,
		InternalClient: "192.168.1.10",
	})
	assert.Error(t, err)
}

func TestDevice_ListMappings_Empty(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)

	// 空表：索引 0 即返回 713，枚举得到空结果而非错误
	mappings, err := dev.ListMappings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestDevice_ListMappings_PropagatesOtherFaults(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	srv.Override(igdtest.ActionGetGenericPortMappingEntry, func(args igdtest.Values) (igdtest.Values, *igdtest.Fault) {
		return nil, igdtest.Faultf(igdif.FaultActionFailed, "ActionFailed")
	})
	dev := newTestDevice(t, srv)

	// 713 以外的故障终止枚举并上抛
	_, err := dev.ListMappings(context.Background())
	var ctrlErr *igdif.ControlError
	require.ErrorAs(t, err, &ctrlErr)
	assert.Equal(t, igdif.FaultActionFailed, ctrlErr.Code)
}

// ============================================================================
//                              删除
// ============================================================================

func TestDevice_DeleteMapping_Idempotent(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)
	ctx := context.Background()

	require.NoError(t, dev.CreateMapping(ctx, igdif.Mapping{
		Protocol:       igdif.UDP,
		ExternalPort:   5353,
		InternalPort:   5353,
		InternalClient: "192.168.1.10",
		Enabled:        true,
	}))

	// 第一次删除真正移除
	require.NoError(t, dev.DeleteMapping(ctx, igdif.UDP, 5353))
	assert.Empty(t, srv.Mappings())

	// 第二次删除命中 714，被吸收为成功
	assert.NoError(t, dev.DeleteMapping(ctx, igdif.UDP, 5353))
}

func TestDevice_DeleteMapping_OtherFaultsPropagate(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	srv.Override(igdtest.ActionDeletePortMapping, func(args igdtest.Values) (igdtest.Values, *igdtest.Fault) {
		return nil, igdtest.Faultf(igdif.FaultActionNotAuthorized, "ActionNotAuthorized")
	})
	dev := newTestDevice(t, srv)

	// 吸收仅限 714，其余错误码原样上抛
	err := dev.DeleteMapping(context.Background(), igdif.TCP, 80)
	var ctrlErr *igdif.ControlError
	require.ErrorAs(t, err, &ctrlErr)
	assert.Equal(t, igdif.FaultActionNotAuthorized, ctrlErr.Code)
}

// ============================================================================
//                              针对性查询
// ============================================================================

func TestDevice_SpecificMapping(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	srv.SetMappings(igdif.Mapping{
		Protocol:       igdif.TCP,
		ExternalPort:   8443,
		InternalPort:   443,
		InternalClient: "192.168.1.20",
		Description:    "https",
		Enabled:        true,
		LeaseDuration:  600,
	})
	dev := newTestDevice(t, srv)

	m, err := dev.SpecificMapping(context.Background(), igdif.TCP, 8443)
	require.NoError(t, err)

	// 响应不回显协议与外部端口，用请求值补齐后条目仍然完整
	assert.Equal(t, igdif.TCP, m.Protocol)
	assert.Equal(t, uint16(8443), m.ExternalPort)
	assert.Equal(t, uint16(443), m.InternalPort)
	assert.Equal(t, "192.168.1.20", m.InternalClient)
	assert.Equal(t, "https", m.Description)
	assert.True(t, m.Enabled)
	assert.Equal(t, uint32(600), m.LeaseDuration)
}

func TestDevice_SpecificMapping_NotFound(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	dev := newTestDevice(t, srv)

	_, err := dev.SpecificMapping(context.Background(), igdif.TCP, 12345)
	assert.ErrorIs(t, err, igdif.ErrMappingNotFound)
}

func TestDevice_SpecificMapping_713AlsoNotFound(t *testing.T) {
	srv := igdtest.NewServer()
	defer srv.Close()
	srv.Override(igdtest.ActionGetSpecificPortMappingEntry, func(args igdtest.Values) (igdtest.Values, *igdtest.Fault) {
		return nil, igdtest.Faultf(igdif.FaultSpecifiedArrayIndexInvalid, "SpecifiedArrayIndexInvalid")
	})
	dev := newTestDevice(t, srv)

	// 部分固件对未命中返回 713，同样映射为 ErrMappingNotFound
	_, err := dev.SpecificMapping(context.Background(), igdif.TCP, 12345)
	assert.ErrorIs(t, err, igdif.ErrMappingNotFound)
}

// ============================================================================
//                              故障映射测试
// ============================================================================

func TestAbsorbDeleteFault(t *testing.T) {
	notFound := &igdif.ControlError{Action: "DeletePortMapping", Code: igdif.FaultNoSuchEntryInArray}
	assert.NoError(t, absorbDeleteFault(notFound))

	conflict := &igdif.ControlError{Action: "DeletePortMapping", Code: igdif.FaultConflictInMappingEntry}
	assert.Equal(t, error(conflict), absorbDeleteFault(conflict))

	assert.NoError(t, absorbDeleteFault(nil))
}

func TestIsEndOfTable(t *testing.T) {
	assert.True(t, isEndOfTable(&igdif.ControlError{Code: igdif.FaultSpecifiedArrayIndexInvalid}))
	assert.False(t, isEndOfTable(&igdif.ControlError{Code: igdif.FaultNoSuchEntryInArray}))
	assert.False(t, isEndOfTable(nil))
}

func TestTranslateLookupFault(t *testing.T) {
	for _, code := range []int{igdif.FaultNoSuchEntryInArray, igdif.FaultSpecifiedArrayIndexInvalid} {
		err := translateLookupFault(&igdif.ControlError{Code: code})
		assert.ErrorIs(t, err, igdif.ErrMappingNotFound)
	}

	other := &igdif.ControlError{Code: igdif.FaultActionFailed}
	assert.Equal(t, error(other), translateLookupFault(other))
}
