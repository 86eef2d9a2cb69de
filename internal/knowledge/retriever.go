package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// 上下文片段之间的分隔行
const contextSeparator = "\n---\n"

// DefaultTopK 默认检索条数
const DefaultTopK = 3

// ContextRetriever 编排向量检索并把topK命中拼成一段上下文文本。
// 索引为空（未构建完成或构建失败）时返回空串，调用方视为"无上下文"而非错误。
type ContextRetriever struct {
	records  []Record
	index    *VectorIndex
	embedder Embedder
	topK     int
}

func NewContextRetriever(records []Record, index *VectorIndex, embedder Embedder, topK int) *ContextRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ContextRetriever{
		records:  records,
		index:    index,
		embedder: embedder,
		topK:     topK,
	}
}

// Retrieve 返回与查询最相关的知识条目，格式为"Q: ...\nA: ..."，
// 条目间以"---"分隔。查询时向量化失败会把错误抛给调用方，
// 由调用方决定是否继续无上下文流程。
func (r *ContextRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	if !r.index.HasEntries() {
		return "", nil
	}

	matches, err := r.index.Query(ctx, query, r.embedder, r.topK)
	if err != nil {
		return "", err
	}

	snippets := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Index < 0 || m.Index >= len(r.records) {
			continue
		}
		record := r.records[m.Index]
		snippets = append(snippets, fmt.Sprintf("Q: %s\nA: %s", record.Question, record.Answer))
	}

	return strings.Join(snippets, contextSeparator), nil
}
