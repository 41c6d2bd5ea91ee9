//go:build null

package pasteboard

import (
	"github.com/labi-le/pasteboard/pkg/pasteboard/memory"
	"github.com/labi-le/pasteboard/pkg/pasteboard/native"
)

func defaultDriver() native.Driver {
	return memory.New()
}
