// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 madlibs 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertContains / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON / WriteTempFile

# 子包

  - testutil/mocks: MockEngine（推理引擎），支持 Builder 模式、
    按提示词应答与错误注入，并记录每次调用
  - testutil/fixtures: 样例 JSON Schema 与对应的 Go 结构体

# 使用示例

	ctx := testutil.TestContext(t)
	engine := mocks.NewMockEngine().WithResponder(func(p string) string { return " Alice\n" })
	model := structured.NewModel(engine)
	doc, err := model.Generate(ctx, "Alice is 30.", fixtures.PersonSchema)
*/
package testutil
