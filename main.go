package main

import "shrimpy/cli"

// @title Shrimpy Seafood API
// @version 1.0
// @description 餐厅菜单站点 API：公开菜单、邮箱确认注册登录、后台菜品管理
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cli.Execute()
}
