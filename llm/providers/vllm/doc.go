// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 vllm 通过 vLLM 的 OpenAI 兼容 HTTP 服务实现 llm.Engine。

一次 Generate 对应一次 /v1/completions 请求，prompt 字段携带整批提示词，
由服务端完成 GPU 批处理与采样。响应中的 choices 按 index / n 映射回
对应提示词。

服务端无法接收进程内的 logits processor，因此请求约束采样时
LogitsProcessors 必须为空列表，非空列表返回 llm.ErrInvalidRequest。
*/
package vllm
