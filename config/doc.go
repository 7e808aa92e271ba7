// Package config 提供 madlibs 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（MADLIBS_ 前缀）的顺序叠加，
// 覆盖推理引擎、生成参数、结果缓存、日志、指标与遥测。
package config
