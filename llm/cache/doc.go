// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 为推理引擎提供按提示词的结果缓存，通过本地 LRU
与 Redis 协同避免对相同提示词重复推理。

# 概述

[Engine] 包装任意 llm.Engine：每个提示词按 模型 + 采样参数 + 提示词
生成缓存键。整批全部命中时直接返回缓存结果；只要有一个未命中，
整批以一次调用转发给下游引擎并回写缓存，保持一批一次调用的语义。

# 核心类型

  - KeyStrategy / HashKeyStrategy：缓存键生成策略。
  - LRUCache：本地 L1 缓存，O(1) 读写与 TTL 过期。
  - Store：远端 L2 存储接口，由 internal/cache.Manager 实现。

# 注意

请求了 logits processor 的调用不参与缓存；远端读写失败只记录告警，
不影响生成结果。
*/
package cache
