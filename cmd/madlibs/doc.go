// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 madlibs 命令行入口。

# 概述

cmd/madlibs 连接 vLLM 的 OpenAI 兼容服务，把 JSON Schema 拆成逐字段的
抽取提示词并按批生成，最后把结果组装为嵌套 JSON 输出。配置来自 YAML 文件
与 MADLIBS_ 前缀的环境变量，命令行参数优先。

# 子命令

  - extract：逐字段生成，输出 JSON 文档
  - single：单次生成，输出原始文本
  - health：检查推理服务与模型
  - version：显示版本信息

# 主要能力

  - 结构化日志（zap），级别与格式由 log 配置决定
  - 可选 Prometheus 指标端点（metrics.addr）
  - 可选 OpenTelemetry 追踪（telemetry）
  - 可选结果缓存（本地 LRU + Redis）
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
