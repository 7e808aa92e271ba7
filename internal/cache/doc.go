// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的连接管理与键值读写，作为推理结果缓存的存储层。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/Set/Delete 基础操作，
    以及 GetMany（MGET）与 SetMany（pipeline）批量操作。
  - Config：地址、密码、库编号、默认 TTL、连接池大小与 TLS 开关。

# 错误语义

未命中返回 [ErrCacheMiss]，可通过 [IsCacheMiss] 判断；
关闭后的任何操作返回 [ErrClosed]。
*/
package cache
