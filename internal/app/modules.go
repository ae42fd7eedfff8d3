package app

import (
	"github.com/vk/kernelgen/modules/metadatatester"
	"github.com/vk/kernelgen/modules/tiledblur"
	"github.com/vk/kernelgen/modules/wraptest"
	"github.com/vk/kernelgen/modules/xorimage"
	"github.com/vk/kernelgen/registry"
)

// coreModules is the definitive list of all generator modules compiled into
// the kernelgen binary. Order matters only for modules that create other
// generators at build time.
var coreModules = []registry.Module{
	&xorimage.Module{},
	&wraptest.Module{},
	&metadatatester.Module{},
	&tiledblur.Module{},
}
