// Package biz 提供证据问答服务的业务逻辑层。
//
// 组件按数据流排列：
//   - Chunker: 按句切分页面文本，过滤过短的句子
//   - Embedder: 批量向量化，按 (会话, 内容哈希) 缓存
//   - Rank: 余弦相似度线性扫描，返回 top-K 证据
//   - Scorer: 证据匹配度标签与整体置信度
//   - Generator / Verifier: 组装提示词并调用语言模型
//   - EvidenceService: 组合以上组件，提供 Upload / Ask / Clear / ListFiles / Stats
//
// 检索是对整个语料库的 O(n·d) 线性扫描，没有任何索引结构。这是系统的容量上限：
// 只适用于单次会话上传的小规模语料。
package biz
