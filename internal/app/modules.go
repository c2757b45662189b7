package app

import (
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/modules/archive"
	"github.com/matrixci/matrixci/modules/exec"
	"github.com/matrixci/matrixci/modules/httpclient"
	"github.com/matrixci/matrixci/modules/notify"
	"github.com/matrixci/matrixci/modules/workspace"
)

// coreModules is the default set of runner and service modules compiled into
// the binary. Tests inject their own set instead.
var coreModules = []registry.Module{
	&exec.Module{},
	&archive.Module{},
	&notify.Module{},
	&httpclient.Module{},
	&workspace.Module{},
}
