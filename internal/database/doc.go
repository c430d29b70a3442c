// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理，供会话归档的 SQL
后端使用。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Close() 与事务封装。
  - PoolConfig：最大空闲/打开连接数、生命周期、健康检查间隔。

# 驱动

Open 按驱动名选择方言：sqlite（github.com/glebarez/sqlite，纯 Go）、
postgres 与 mysql。

# 事务

WithTransactionRetry 对死锁、序列化失败、连接中断等瞬时错误做
指数退避重试，其余错误立即返回。
*/
package database
