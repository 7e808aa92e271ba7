/*
包 schema 将结构化 schema 拆分为逐字段的抽取条目，并按批次与依赖图
规划抽取顺序，同时负责把字段结果写回嵌套输出文档。

# 核心类型

  - Item：单个叶子字段，包含输出路径 Path 与类型提示 Type。
  - Batch：一次推理调用中一起提交的一组 Item。
  - Batcher：根据 schema、可选依赖图与批大小生成批次计划。
  - Document：嵌套输出文档，叶子为字符串。
  - JSONSchema：结构化 schema 定义。

# 支持的 schema 来源

  - string / []byte：JSON Schema 文本，保留文档中的属性顺序。
  - *JSONSchema / JSONSchema：按 PropertyOrder 或键名排序遍历。
  - Go 结构体（或其指针）：按字段声明顺序遍历，键名取 json 标签。

本地 $ref（#/$defs/... 与 #/definitions/...）会被解析，
单元素 allOf 会被展开，anyOf/oneOf 中的 null 类型会被忽略。
*/
package schema
