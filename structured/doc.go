// Package structured 把 schema 拆分为逐字段的抽取提示词, 按批提交给推理引擎,
// 再把每个字段的输出按路径组装回嵌套文档.
//
// 两种生成方式:
//   - Generate: 逐字段抽取, 每批一次引擎调用, 输出去除首尾空白后插入文档.
//   - DefaultGenerate: 整个 schema 嵌入单个提示词, 一次调用, 返回原始文本.
//
// Model 不做重试, 不做并发调度, 也不适合多个调用方同时使用.
package structured
