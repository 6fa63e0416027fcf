// Package policy 预约准入的纯逻辑：时段重叠、节次组合、设置谓词与准入判定表。
// 本包不访问存储，所有输入由调用方在请求内装配。
package policy
