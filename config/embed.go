package config

import (
	_ "embed"
)

// DevJWTSecret 内置配置中的开发密钥，release 模式下不允许使用
const DevJWTSecret = "shrimpy-dev-secret"

// DefaultConfigYAML 嵌入的默认配置
//
//go:embed config.yaml
var DefaultConfigYAML []byte

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
func SafeErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if GlobalConfig != nil && GlobalConfig.IsRelease() {
		return fallback
	}
	return err.Error()
}
