package knowledge

import (
	"strings"
)

// KeywordMatcher 基于词元重叠的无状态兜底检索器。
// 不发起任何外部调用，是返回静态致歉语之前的最后一道防线。
type KeywordMatcher struct{}

func NewKeywordMatcher() *KeywordMatcher {
	return &KeywordMatcher{}
}

// Match 将查询小写化并按空白切分，每条记录的得分为
// 在其question+answer小写拼接中以子串形式出现的词元数量。
// 取最高分记录的answer，同分先到先得；最高分为0时返回空串。
func (m *KeywordMatcher) Match(query string, records []Record) string {
	if len(records) == 0 {
		return ""
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return ""
	}

	bestScore := 0
	bestAnswer := ""
	for _, r := range records {
		haystack := strings.ToLower(r.Question + " " + r.Answer)
		score := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestAnswer = r.Answer
		}
	}

	return bestAnswer
}
