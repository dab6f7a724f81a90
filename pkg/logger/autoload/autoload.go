// Package autoload initializes the global logger from LOG_* environment
// variables as an import side effect.
package autoload

import (
	configx "github.com/pattarawat/docassist/pkg/config"
	logx "github.com/pattarawat/docassist/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
