package knowledge

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// 余弦相似度分母的加性epsilon，避免零向量导致除零
const cosineEpsilon = 1e-8

// EmbeddingEntry 一条知识记录的向量，Index与记录在知识库中的下标一致
type EmbeddingEntry struct {
	Index  int
	Vector []float32
}

// ScoredMatch 单次查询的打分结果，不持久化
type ScoredMatch struct {
	Index int
	Score float64
}

// VectorIndex 进程内向量索引。启动后构建一次，之后只读；
// entries的发布经过读写锁保护，构建未完成前查询返回空结果。
type VectorIndex struct {
	mu      sync.RWMutex
	entries []EmbeddingEntry
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Build 为每条记录生成一个向量（question与answer拼接为一段文本），
// 整库合并成一次批量请求。记录为空或向量化失败时索引保持为空，
// 错误只返回给调用方记日志，不影响服务继续运行。
func (v *VectorIndex) Build(ctx context.Context, records []Record, embedder Embedder) error {
	if len(records) == 0 {
		return nil
	}
	if embedder == nil || !embedder.Ready() {
		return errors.New("embedder not ready")
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Question + "\n" + r.Answer
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	entries := make([]EmbeddingEntry, len(vectors))
	for i, vec := range vectors {
		entries[i] = EmbeddingEntry{Index: i, Vector: vec}
	}

	v.mu.Lock()
	v.entries = entries
	v.mu.Unlock()
	return nil
}

// Len 当前索引中的向量数
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// HasEntries 索引是否可用
func (v *VectorIndex) HasEntries() bool {
	return v.Len() > 0
}

// Query 向量化查询文本并返回按相似度降序的前topK个结果。
// 相同分数按原始下标升序（稳定排序保证）。索引为空时返回nil。
func (v *VectorIndex) Query(ctx context.Context, text string, embedder Embedder, topK int) ([]ScoredMatch, error) {
	v.mu.RLock()
	entries := v.entries
	v.mu.RUnlock()

	if len(entries) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		return nil, nil
	}

	query, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredMatch, len(entries))
	for i, e := range entries {
		scored[i] = ScoredMatch{Index: e.Index, Score: Cosine(query, e.Vector)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Cosine 计算余弦相似度：dot(a,b) / (‖a‖*‖b‖ + ε)。
// 维度不一致时只比较公共前缀，退化向量（全零）得分为0。
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + cosineEpsilon)
}
