// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖推理批次、
生成调用与结果缓存三个维度。

# 概述

Collector 通过 promauto 注册指标，所有指标按 namespace 隔离。
NewCollector 使用默认 Registry，NewCollectorWithRegistry 便于
测试与多实例场景。nil *Collector 的所有方法均为空操作，调用方
无需判空。

# 主要能力

  - 推理批次：批次数（按状态）、每批提示词数、引擎耗时、提示词 token 估算。
  - 生成调用：structured 与 single_pass 两种模式的调用数与端到端耗时。
  - 缓存：按缓存层（local、redis）统计命中与未命中。
*/
package metrics
