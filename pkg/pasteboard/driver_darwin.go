//go:build darwin && !null

package pasteboard

import (
	"github.com/labi-le/pasteboard/pkg/pasteboard/appkit"
	"github.com/labi-le/pasteboard/pkg/pasteboard/native"
)

func defaultDriver() native.Driver {
	return appkit.New()
}
