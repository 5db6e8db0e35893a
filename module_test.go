package igd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	igdif "github.com/dep2p/go-igd/pkg/interfaces/igd"
)

// ============================================================================
//                              fx 模块测试
// ============================================================================

// populated 用于从容器中取出命名服务
type populated struct {
	fx.In
	Finder *Finder `name:"igd_finder"`
}

func TestModule_Lifecycle(t *testing.T) {
	var out populated
	app := fxtest.New(t,
		Module(),
		fx.Populate(&out),
	)
	app.RequireStart()
	require.NotNil(t, out.Finder)
	app.RequireStop()
}

func TestModule_WithConfig(t *testing.T) {
	cfg := igdif.DefaultConfig()
	cfg.SearchTargets = []string{"ssdp:rootdevice"}

	var out populated
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&out),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, out.Finder)
	assert.Equal(t, []string{"ssdp:rootdevice"}, out.Finder.cfg.SearchTargets)
}

func TestProvideServices_InvalidConfig(t *testing.T) {
	cfg := igdif.DefaultConfig()
	cfg.SearchWindow = 0

	_, err := ProvideServices(ModuleInput{Config: cfg})
	assert.Error(t, err)
}

func TestProvideServices_DefaultConfig(t *testing.T) {
	out, err := ProvideServices(ModuleInput{})
	require.NoError(t, err)
	require.NotNil(t, out.Finder)
	assert.Equal(t, igdif.DefaultSearchWindow, out.Finder.cfg.SearchWindow)
}
