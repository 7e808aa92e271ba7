// Package ctxkeys 定义在 context 中传递的生成调用标识 (TraceID 与批次序号).
package ctxkeys
