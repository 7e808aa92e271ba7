// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 为 madlibs 命令行提供 Prometheus 指标端点。

# 核心类型

  - Manager：封装 net/http.Server，提供非阻塞 Start、
    Shutdown、Errors 等生命周期方法。
  - Config：监听地址、读写超时与优雅关闭超时。

NewMetricsHandler 挂载 /metrics（promhttp）与 /healthz。
*/
package server
