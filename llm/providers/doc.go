// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供推理引擎 HTTP 实现的公共基础层。vllm 子包依赖本包
完成请求/响应序列化与错误映射。

# 核心类型

  - BaseProviderConfig: 引擎共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - CompletionRequest / CompletionResponse: OpenAI 兼容 completions 格式
  - ModelList: 模型列表响应

# 核心函数

  - MapHTTPError: 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage: 解析 OpenAI 与 vLLM 两种错误响应体
  - NewCompletionRequest: 采样参数到请求体的转换
  - BearerTokenHeaders: Bearer Token 标准认证 header 构建
*/
package providers
