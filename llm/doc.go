// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义推理引擎抽象，供结构化抽取层批量提交提示词。

# 概述

上层只依赖 [Engine] 接口：一次 Generate 调用提交一批提示词，
返回与提示词顺序一致的 [RequestOutput]。具体的 HTTP 引擎实现位于
llm/providers/vllm，Redis 结果缓存装饰器位于 llm/cache。

# 采样参数

[SamplingParams] 对齐 vLLM 的采样选项。[NewSamplingParams] 从关键字
参数构造参数，未知名称或类型不符时返回 [ErrInvalidRequest]。
LogitsProcessors 非 nil 表示请求了约束采样。

# 错误处理

所有引擎错误统一为 [*Error]，携带 [ErrorCode]、HTTP 状态与可重试标记，
可通过 [IsCode] 判断。
*/
package llm
