// Package main is the entry point for the Evidence-X service.
//
//	@title			Evidence-X API
//	@version		1.0
//	@description	证据问答服务 - 基于上传文档检索证据、生成并校验答案
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@BasePath		/
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/evidence-x/cmd/evidence/app"
)

func main() {
	app.NewApp().Run()
}
