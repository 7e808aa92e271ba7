// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 prompts 提供字段抽取使用的提示词模板常量，以及与 Python
str.format 兼容的占位符格式化能力。

# 模板

  - DefaultPrompt：逐字段抽取模板，占位符 {prompt}、{key}、{type}。
  - SinglePassPrompt：单次整体抽取模板，占位符 {prompt}、{schema}。

# 格式化规则

  - {name} 按名称替换，值通过 fmt.Sprint 转为文本。
  - {{ 与 }} 分别输出字面量 { 与 }。
  - 未知名称、位置参数 {}、{0} 返回 ErrUnknownPlaceholder。
  - 括号不配对或包含格式说明符时返回 ErrMalformedTemplate。
  - 多余的参数会被忽略。
*/
package prompts
